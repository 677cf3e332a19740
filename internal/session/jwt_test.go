package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"varsityhub/internal/session"
)

type SessionSuite struct {
	suite.Suite
	svc *session.Service
}

func (s *SessionSuite) SetupTest() {
	s.svc = session.NewService("test-signing-key-for-sessions", "varsityhub", "varsityhub-api")
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestGenerateAndValidate() {
	token, err := s.svc.Generate("user-42", time.Hour)
	s.Require().NoError(err)

	claims, err := s.svc.Validate(token)
	s.Require().NoError(err)
	s.Equal("user-42", claims.PrincipalID)
	s.Equal("varsityhub", claims.Issuer)
	s.NotEmpty(claims.ID, "every session carries a unique token ID")
}

func (s *SessionSuite) TestUniqueTokenIDs() {
	a, err := s.svc.Generate("user-42", time.Hour)
	s.Require().NoError(err)
	b, err := s.svc.Generate("user-42", time.Hour)
	s.Require().NoError(err)

	ca, err := s.svc.Validate(a)
	s.Require().NoError(err)
	cb, err := s.svc.Validate(b)
	s.Require().NoError(err)
	s.NotEqual(ca.ID, cb.ID)
}

func (s *SessionSuite) TestExpiredToken() {
	token, err := s.svc.Generate("user-42", -time.Minute)
	s.Require().NoError(err)

	_, err = s.svc.Validate(token)
	s.ErrorIs(err, session.ErrInvalidToken)
}

func (s *SessionSuite) TestWrongKey() {
	other := session.NewService("a-different-signing-key", "varsityhub", "varsityhub-api")
	token, err := other.Generate("user-42", time.Hour)
	s.Require().NoError(err)

	_, err = s.svc.Validate(token)
	s.ErrorIs(err, session.ErrInvalidToken)
}

func (s *SessionSuite) TestGarbageToken() {
	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := s.svc.Validate(token)
		s.ErrorIs(err, session.ErrInvalidToken)
	}
}

func (s *SessionSuite) TestMemoryTRL() {
	ctx := context.Background()
	trl := session.NewMemoryTRL()

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(trl.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	// Empty token IDs are ignored rather than revoking the empty key.
	s.Require().NoError(trl.Revoke(ctx, "", time.Hour))
	revoked, err = trl.IsRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}
