// Package integrity makes audit entries tamper-evident and signs short-lived
// health data access tokens. Both schemes are HMAC-SHA256 over canonical
// serializations, keyed independently from the field encryption key.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// KeySource supplies the stamping key. *keys.Provider satisfies it.
type KeySource interface {
	IntegrityKey() ([]byte, error)
}

// EntryFields is the fixed, ordered subset of an audit entry covered by the
// integrity stamp. Anything outside this set can change without invalidating
// the stamp; everything inside it cannot.
type EntryFields struct {
	ActorID       string
	ActionType    string
	ResourceType  string
	ResourceID    string
	Timestamp     time.Time
	NetworkOrigin string
	ClientAgent   string
}

// canonicalEntry fixes the serialization the HMAC runs over. Field order is
// the struct declaration order, which json.Marshal preserves, so the digest
// is deterministic across processes.
type canonicalEntry struct {
	ActorID       string `json:"userId"`
	ActionType    string `json:"actionType"`
	ResourceType  string `json:"resourceType"`
	ResourceID    string `json:"resourceId"`
	Timestamp     string `json:"timestamp"`
	NetworkOrigin string `json:"ipAddress"`
	ClientAgent   string `json:"userAgent"`
}

// Stamper computes keyed digests over audit entry fields. Stateless apart
// from the cached key; safe for concurrent use.
type Stamper struct {
	keys KeySource
}

// NewStamper builds a Stamper over the given key source.
func NewStamper(keys KeySource) *Stamper {
	return &Stamper{keys: keys}
}

// Stamp returns the hex HMAC-SHA256 digest of the canonical entry fields.
// The only failure mode is a missing key, which propagates from the provider.
func (s *Stamper) Stamp(f EntryFields) (string, error) {
	key, err := s.keys.IntegrityKey()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(canonicalEntry{
		ActorID:       f.ActorID,
		ActionType:    f.ActionType,
		ResourceType:  f.ResourceType,
		ResourceID:    f.ResourceID,
		Timestamp:     f.Timestamp.UTC().Format(time.RFC3339Nano),
		NetworkOrigin: f.NetworkOrigin,
		ClientAgent:   f.ClientAgent,
	})
	if err != nil {
		return "", fmt.Errorf("integrity: canonicalize entry: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the stamp and compares it in constant time. A false
// result means at least one covered field was altered after stamping.
func (s *Stamper) Verify(f EntryFields, digest string) (bool, error) {
	want, err := s.Stamp(f)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(digest)), nil
}
