// Package keys resolves the master PHI secret into purpose-separated
// 256-bit keys. The master secret is never handed out directly: field
// encryption, audit integrity stamping, and access token signing each get
// their own HKDF-derived sub-key so a leak of one cannot forge the others.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLen = 32 // 256 bits

	// Salt for stretching human passphrases into key material. Fixed and
	// application-specific so the same passphrase always yields the same key.
	passphraseSalt = "health-data-salt"

	// hkdfSalt separates this application's key hierarchy from any other use
	// of the same master secret.
	hkdfSalt = "varsityhub-key-derivation"

	// devFallbackPassphrase is the clearly-labeled development-only secret.
	// It can never collide with a production key because production refuses
	// to start without an explicit secret.
	devFallbackPassphrase = "dev-fallback-key-32chars-long123"
)

// Purpose labels for HKDF sub-key derivation.
const (
	purposeFieldEncryption = "field-encryption"
	purposeAuditIntegrity  = "audit-integrity"
	purposeAccessToken     = "access-token"
)

// ErrSecretRequired is the fatal production misconfiguration: PHI must never
// be protected by a guessable default key.
var ErrSecretRequired = errors.New("HEALTH_DATA_ENCRYPTION_KEY is required for PHI encryption in production")

// Provider derives and caches the key hierarchy for the process lifetime.
// Derivation runs exactly once regardless of how many goroutines race on
// first use; scrypt is deliberately slow, so re-deriving per call is not
// an option. Safe for concurrent use.
type Provider struct {
	secret            string
	integrityOverride string
	production        bool
	logger            *slog.Logger

	once         sync.Once
	fieldKey     []byte
	integrityKey []byte
	tokenKey     []byte
	err          error
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for the development fallback warning.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithIntegrityKeyOverride supplies a separate audit integrity secret. When
// set, the audit HMAC key is derived from this secret instead of the master,
// matching deployments that keep the two secrets apart.
func WithIntegrityKeyOverride(secret string) Option {
	return func(p *Provider) { p.integrityOverride = secret }
}

// NewProvider builds a Provider over the environment secret. No derivation
// happens until the first key is requested.
func NewProvider(secret string, production bool, opts ...Option) *Provider {
	p := &Provider{
		secret:     secret,
		production: production,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FieldKey returns the 256-bit key for PHI field encryption.
func (p *Provider) FieldKey() ([]byte, error) {
	p.init()
	return p.fieldKey, p.err
}

// IntegrityKey returns the 256-bit key for audit entry HMAC stamping.
func (p *Provider) IntegrityKey() ([]byte, error) {
	p.init()
	return p.integrityKey, p.err
}

// TokenKey returns the 256-bit key for access token signing.
func (p *Provider) TokenKey() ([]byte, error) {
	p.init()
	return p.tokenKey, p.err
}

func (p *Provider) init() {
	p.once.Do(func() {
		master, err := p.resolveMaster()
		if err != nil {
			p.err = err
			return
		}

		p.fieldKey, err = deriveSubKey(master, purposeFieldEncryption)
		if err != nil {
			p.err = err
			return
		}
		p.tokenKey, err = deriveSubKey(master, purposeAccessToken)
		if err != nil {
			p.err = err
			return
		}

		integritySource := master
		if p.integrityOverride != "" {
			integritySource, err = stretchSecret(p.integrityOverride)
			if err != nil {
				p.err = err
				return
			}
		}
		p.integrityKey, err = deriveSubKey(integritySource, purposeAuditIntegrity)
		if err != nil {
			p.err = err
		}
	})
}

// resolveMaster turns the configured secret into 256-bit master key material.
func (p *Provider) resolveMaster() ([]byte, error) {
	if p.secret == "" {
		if p.production {
			return nil, ErrSecretRequired
		}
		p.logger.Warn("no HEALTH_DATA_ENCRYPTION_KEY set, using development fallback key",
			"hint", "real PHI must never be stored with this key")
		return stretchSecret(devFallbackPassphrase)
	}
	return stretchSecret(p.secret)
}

// stretchSecret interprets a secret as either a raw hex key or a passphrase.
// Exactly 64 hex characters decode directly; anything else goes through
// scrypt with the fixed application salt.
func stretchSecret(secret string) ([]byte, error) {
	if len(secret) == hex.EncodedLen(keyLen) {
		if raw, err := hex.DecodeString(secret); err == nil {
			return raw, nil
		}
		// 64 chars but not hex: treat as a passphrase like any other.
	}
	key, err := scrypt.Key([]byte(secret), []byte(passphraseSalt), 1<<14, 8, 1, keyLen)
	if err != nil {
		return nil, fmt.Errorf("stretch key passphrase: %w", err)
	}
	return key, nil
}

func deriveSubKey(master []byte, purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, []byte(hkdfSalt), []byte(purpose))
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s sub-key: %w", purpose, err)
	}
	return key, nil
}
