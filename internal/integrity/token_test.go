package integrity_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"varsityhub/internal/integrity"
	"varsityhub/internal/keys"
)

type TokenSuite struct {
	suite.Suite
	now    time.Time
	issuer *integrity.TokenIssuer
}

func (s *TokenSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	s.issuer = integrity.NewTokenIssuer(
		keys.NewProvider(strings.Repeat("ab", 32), true),
		integrity.WithClock(func() time.Time { return s.now }),
	)
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) TestRoundTrip() {
	token, err := s.issuer.Issue("user-42", "health_data", time.Hour)
	s.Require().NoError(err)

	claims := s.issuer.Verify(token)
	s.Require().NotNil(claims)
	s.Equal("user-42", claims.PrincipalID)
	s.Equal("health_data", claims.DataType)
	s.Equal(s.now, claims.IssuedAt.UTC())
	s.Equal(s.now.Add(time.Hour), claims.ExpiresAt.UTC())
}

func (s *TokenSuite) TestExpiryIsExclusive() {
	token, err := s.issuer.Issue("user-42", "health_data", time.Hour)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour - time.Millisecond)
	s.NotNil(s.issuer.Verify(token), "one tick before expiry is still valid")

	s.now = s.now.Add(time.Millisecond)
	s.Nil(s.issuer.Verify(token), "the expiry instant itself grants nothing")
}

func (s *TokenSuite) TestZeroTTLNeverGrants() {
	token, err := s.issuer.Issue("user-42", "health_data", 0)
	s.Require().NoError(err)
	s.Nil(s.issuer.Verify(token))
}

func (s *TokenSuite) TestForgedSignature() {
	token, err := s.issuer.Issue("user-42", "health_data", time.Hour)
	s.Require().NoError(err)

	encoded, sig, _ := strings.Cut(token, ".")

	// Replay the payload with a signature minted under a different key.
	other := integrity.NewTokenIssuer(
		keys.NewProvider(strings.Repeat("cd", 32), true),
		integrity.WithClock(func() time.Time { return s.now }),
	)
	foreign, err := other.Issue("user-42", "health_data", time.Hour)
	s.Require().NoError(err)
	_, foreignSig, _ := strings.Cut(foreign, ".")

	s.Nil(s.issuer.Verify(encoded + "." + foreignSig))
	s.Nil(other.Verify(encoded + "." + sig))
}

func (s *TokenSuite) TestTamperedPayload() {
	token, err := s.issuer.Issue("user-42", "health_data", time.Hour)
	s.Require().NoError(err)

	_, sig, _ := strings.Cut(token, ".")
	forged := base64.StdEncoding.EncodeToString(
		[]byte(`{"principalId":"user-99","dataType":"health_data","iat":0,"exp":99999999999999}`),
	)
	s.Nil(s.issuer.Verify(forged + "." + sig))
}

func (s *TokenSuite) TestMalformedInput() {
	for name, token := range map[string]string{
		"empty":             "",
		"no separator":      "abcdef",
		"empty payload":     ".deadbeef",
		"empty signature":   "eyJhIjoxfQ==.",
		"not base64":        "!!not-base64!!.deadbeef",
		"signature garbage": "eyJhIjoxfQ==.zzzz",
	} {
		s.Run(name, func() {
			s.Nil(s.issuer.Verify(token))
		})
	}
}
