package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// TokenKeySource supplies the token signing key. *keys.Provider satisfies it.
type TokenKeySource interface {
	TokenKey() ([]byte, error)
}

// Clock abstracts time.Now for expiry tests.
type Clock func() time.Time

// TokenClaims is what a verified access token asserts: this principal may
// touch this data type until the expiry instant.
type TokenClaims struct {
	PrincipalID string
	DataType    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// tokenPayload is the JSON carried inside the token. Timestamps are Unix
// milliseconds to keep the payload compact and order-comparable.
type tokenPayload struct {
	PrincipalID string `json:"principalId"`
	DataType    string `json:"dataType"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// TokenIssuer mints and verifies opaque bearer tokens of the form
// base64(json-payload) + "." + hex(hmac-sha256(base64-payload)).
// Safe for concurrent use.
type TokenIssuer struct {
	keys  TokenKeySource
	clock Clock
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) TokenOption {
	return func(t *TokenIssuer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTokenIssuer builds a TokenIssuer over the given key source.
func NewTokenIssuer(keys TokenKeySource, opts ...TokenOption) *TokenIssuer {
	t := &TokenIssuer{keys: keys, clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Issue signs a token granting principalID access to dataType for ttl.
func (t *TokenIssuer) Issue(principalID, dataType string, ttl time.Duration) (string, error) {
	now := t.clock()
	raw, err := json.Marshal(tokenPayload{
		PrincipalID: principalID,
		DataType:    dataType,
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	sig, err := t.sign(encoded)
	if err != nil {
		return "", err
	}
	return encoded + "." + sig, nil
}

// Verify checks a token's signature and expiry. It returns nil for any
// malformed, forged, or expired token; routine invalid input is not an error.
// Expiry is exclusive: a token is dead the moment now >= exp, so a zero TTL
// never grants access.
func (t *TokenIssuer) Verify(token string) *TokenClaims {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return nil
	}

	want, err := t.sign(encoded)
	if err != nil {
		return nil
	}
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	expiresAt := time.UnixMilli(payload.ExpiresAt)
	if !t.clock().Before(expiresAt) {
		return nil
	}

	return &TokenClaims{
		PrincipalID: payload.PrincipalID,
		DataType:    payload.DataType,
		IssuedAt:    time.UnixMilli(payload.IssuedAt),
		ExpiresAt:   expiresAt,
	}
}

func (t *TokenIssuer) sign(encoded string) (string, error) {
	key, err := t.keys.TokenKey()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
