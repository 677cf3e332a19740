package keys

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) TestSecretResolution() {
	hexSecret := strings.Repeat("ab", 32)

	s.Run("missing secret is fatal in production", func() {
		p := NewProvider("", true)
		_, err := p.FieldKey()
		s.Require().ErrorIs(err, ErrSecretRequired)

		// Every accessor reports the same cached failure.
		_, err = p.IntegrityKey()
		s.Require().ErrorIs(err, ErrSecretRequired)
	})

	s.Run("missing secret falls back to dev key outside production", func() {
		p := NewProvider("", false)
		key, err := p.FieldKey()
		s.Require().NoError(err)
		s.Len(key, 32)
	})

	s.Run("64 hex chars are used as raw key material", func() {
		a := NewProvider(hexSecret, true)
		b := NewProvider(hexSecret, true)
		keyA, err := a.FieldKey()
		s.Require().NoError(err)
		keyB, err := b.FieldKey()
		s.Require().NoError(err)
		s.Equal(keyA, keyB)
		s.Len(keyA, 32)
	})

	s.Run("passphrase derivation is deterministic", func() {
		a := NewProvider("correct horse battery staple", true)
		b := NewProvider("correct horse battery staple", true)
		keyA, err := a.FieldKey()
		s.Require().NoError(err)
		keyB, err := b.FieldKey()
		s.Require().NoError(err)
		s.Equal(keyA, keyB)
	})

	s.Run("different secrets yield different keys", func() {
		a := NewProvider(hexSecret, true)
		b := NewProvider(strings.Repeat("cd", 32), true)
		keyA, err := a.FieldKey()
		s.Require().NoError(err)
		keyB, err := b.FieldKey()
		s.Require().NoError(err)
		s.NotEqual(keyA, keyB)
	})
}

func (s *ProviderSuite) TestKeySeparation() {
	p := NewProvider(strings.Repeat("ab", 32), true)

	fieldKey, err := p.FieldKey()
	s.Require().NoError(err)
	integrityKey, err := p.IntegrityKey()
	s.Require().NoError(err)
	tokenKey, err := p.TokenKey()
	s.Require().NoError(err)

	s.NotEqual(fieldKey, integrityKey)
	s.NotEqual(fieldKey, tokenKey)
	s.NotEqual(integrityKey, tokenKey)
}

func (s *ProviderSuite) TestIntegrityKeyOverride() {
	base := NewProvider(strings.Repeat("ab", 32), true)
	split := NewProvider(strings.Repeat("ab", 32), true,
		WithIntegrityKeyOverride(strings.Repeat("ef", 32)))

	baseKey, err := base.IntegrityKey()
	s.Require().NoError(err)
	splitKey, err := split.IntegrityKey()
	s.Require().NoError(err)
	s.NotEqual(baseKey, splitKey)

	// The override leaves the field key untouched.
	baseField, err := base.FieldKey()
	s.Require().NoError(err)
	splitField, err := split.FieldKey()
	s.Require().NoError(err)
	s.Equal(baseField, splitField)
}

func (s *ProviderSuite) TestConcurrentFirstUse() {
	p := NewProvider(strings.Repeat("ab", 32), true)

	const goroutines = 16
	results := make([][]byte, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := p.FieldKey()
			s.NoError(err)
			results[i] = key
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		s.Equal(results[0], results[i])
	}
}
