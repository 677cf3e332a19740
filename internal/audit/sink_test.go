package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"varsityhub/internal/audit"
	"varsityhub/internal/integrity"
	"varsityhub/internal/keys"
)

// failingStore simulates an audit store outage.
type failingStore struct {
	attempts int
}

func (f *failingStore) Append(context.Context, audit.Entry) error {
	f.attempts++
	return errors.New("connection refused")
}

func (f *failingStore) Query(context.Context, audit.Filter) ([]audit.Entry, error) {
	return nil, errors.New("connection refused")
}

type countingDropped struct {
	n int
}

func (c *countingDropped) Inc() { c.n++ }

type SinkSuite struct {
	suite.Suite
	store   *audit.InMemory
	stamper *integrity.Stamper
	sink    *audit.Sink
}

func (s *SinkSuite) SetupTest() {
	s.store = audit.NewInMemory()
	s.stamper = integrity.NewStamper(keys.NewProvider(strings.Repeat("ab", 32), true))
	s.sink = audit.NewSink(s.store, s.stamper)
}

func TestSinkSuite(t *testing.T) {
	suite.Run(t, new(SinkSuite))
}

func sampleEntry() audit.Entry {
	return audit.Entry{
		ActorID:       "user-42",
		ActionType:    audit.ActionDataAccess,
		ResourceType:  audit.ResourceHealthData,
		ResourceID:    "athlete-7",
		NetworkOrigin: "203.0.113.9",
		ClientAgent:   "Chrome/120.0 (Linux)",
		Notes:         "medical history read",
	}
}

func (s *SinkSuite) TestAppendCompletesEntry() {
	e := s.sink.Append(context.Background(), sampleEntry())

	s.NotEqual(uuid.Nil, e.ID)
	s.False(e.CreatedAt.IsZero())
	s.Len(e.IntegrityHash, 64)

	ok, err := s.sink.Verify(e)
	s.Require().NoError(err)
	s.True(ok)

	stored, err := s.sink.Query(context.Background(), audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(e, stored[0])
}

func (s *SinkSuite) TestAppendPreservesCallerIdentity() {
	e := sampleEntry()
	e.ID = uuid.New()
	e.CreatedAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	got := s.sink.Append(context.Background(), e)
	s.Equal(e.ID, got.ID)
	s.Equal(e.CreatedAt, got.CreatedAt)
}

func (s *SinkSuite) TestStoreOutageNeverPropagates() {
	store := &failingStore{}
	dropped := &countingDropped{}
	sink := audit.NewSink(store, s.stamper, audit.WithDroppedCounter(dropped))

	// Append has no error return at all; the assertions below pin down that
	// the entry was still completed and the loss was counted.
	e := sink.Append(context.Background(), sampleEntry())

	s.NotEqual(uuid.Nil, e.ID)
	s.NotEmpty(e.IntegrityHash)
	s.Equal(1, store.attempts)
	s.Equal(1, dropped.n)
}

func (s *SinkSuite) TestVerifyRejectsAlteredEntry() {
	e := s.sink.Append(context.Background(), sampleEntry())

	e.ActorID = "intruder"
	ok, err := s.sink.Verify(e)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *SinkSuite) TestVerifyRangeFindsTampering() {
	ctx := context.Background()
	clean := s.sink.Append(ctx, sampleEntry())

	second := sampleEntry()
	second.ActorID = "user-43"
	s.sink.Append(ctx, second)

	// Rewrite one stored entry behind the sink's back.
	stored, err := s.store.Query(ctx, audit.Filter{ActorID: "user-43"})
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	forged := stored[0]
	forged.ResourceID = "athlete-999"
	s.Require().NoError(s.store.Append(ctx, forged))

	tampered, err := s.sink.VerifyRange(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(tampered, 1)
	s.Equal("athlete-999", tampered[0].ResourceID)
	s.NotEqual(clean.ID, tampered[0].ID)
}

func (s *SinkSuite) TestQueryFilters() {
	ctx := context.Background()

	first := sampleEntry()
	first.CreatedAt = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	s.sink.Append(ctx, first)

	second := sampleEntry()
	second.ActorID = "user-43"
	second.ResourceType = audit.ResourceStudentData
	second.CreatedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s.sink.Append(ctx, second)

	s.Run("by actor", func() {
		got, err := s.sink.Query(ctx, audit.Filter{ActorID: "user-43"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("user-43", got[0].ActorID)
	})

	s.Run("by resource type", func() {
		got, err := s.sink.Query(ctx, audit.Filter{ResourceType: audit.ResourceHealthData})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(audit.ResourceHealthData, got[0].ResourceType)
	})

	s.Run("by time window", func() {
		got, err := s.sink.Query(ctx, audit.Filter{
			From: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
		})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("user-43", got[0].ActorID)
	})

	s.Run("ordered by creation time", func() {
		got, err := s.sink.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.True(got[0].CreatedAt.Before(got[1].CreatedAt))
	})

	s.Run("repeated reads return identical results", func() {
		first, err := s.sink.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		second, err := s.sink.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Equal(first, second)
	})
}
