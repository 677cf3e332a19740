package phi

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"varsityhub/internal/keys"
)

func testCipher() *Cipher {
	return NewCipher(keys.NewProvider(strings.Repeat("ab", 32), true))
}

type CipherSuite struct {
	suite.Suite
	cipher *Cipher
}

func (s *CipherSuite) SetupTest() {
	s.cipher = testCipher()
}

func TestCipherSuite(t *testing.T) {
	suite.Run(t, new(CipherSuite))
}

func (s *CipherSuite) TestRoundTrip() {
	for _, plaintext := range []string{
		"peanut allergy",
		"ibuprofen 400mg twice daily",
		"contains: colons :: and unicode ⚕ characters",
		strings.Repeat("long clinical narrative ", 200),
	} {
		encoded, err := s.cipher.Encrypt(plaintext)
		s.Require().NoError(err)
		s.NotEqual(plaintext, encoded)

		decoded, err := s.cipher.Decrypt(encoded)
		s.Require().NoError(err)
		s.Equal(plaintext, decoded)
	}
}

func (s *CipherSuite) TestEmptyInputIdentity() {
	for _, input := range []string{"", "   ", "\t\n"} {
		encoded, err := s.cipher.Encrypt(input)
		s.Require().NoError(err)
		s.Equal("", encoded)
	}

	decoded, err := s.cipher.Decrypt("")
	s.Require().NoError(err)
	s.Equal("", decoded)
}

func (s *CipherSuite) TestWireFormat() {
	encoded, err := s.cipher.Encrypt("medical conditions: none")
	s.Require().NoError(err)

	parts := strings.Split(encoded, ":")
	s.Require().Len(parts, 3)

	nonce, err := hex.DecodeString(parts[0])
	s.Require().NoError(err)
	s.Len(nonce, 12)

	tag, err := hex.DecodeString(parts[1])
	s.Require().NoError(err)
	s.Len(tag, 16)
}

func (s *CipherSuite) TestNonceFreshness() {
	first, err := s.cipher.Encrypt("same plaintext")
	s.Require().NoError(err)
	second, err := s.cipher.Encrypt("same plaintext")
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *CipherSuite) TestTamperDetection() {
	encoded, err := s.cipher.Encrypt("emergency contact: 555-0100")
	s.Require().NoError(err)
	parts := strings.Split(encoded, ":")

	flip := func(in string, i int) string {
		c := byte('0')
		if in[i] == '0' {
			c = '1'
		}
		return in[:i] + string(c) + in[i+1:]
	}

	s.Run("flipped ciphertext character fails integrity", func() {
		tampered := parts[0] + ":" + parts[1] + ":" + flip(parts[2], 0)
		_, err := s.cipher.Decrypt(tampered)
		s.Require().Error(err)
		s.True(IsIntegrityFailure(err))
	})

	s.Run("flipped tag character fails integrity", func() {
		tampered := parts[0] + ":" + flip(parts[1], 3) + ":" + parts[2]
		_, err := s.cipher.Decrypt(tampered)
		s.Require().Error(err)
		s.True(IsIntegrityFailure(err))
	})

	s.Run("wrong key fails integrity", func() {
		other := NewCipher(keys.NewProvider(strings.Repeat("cd", 32), true))
		_, err := other.Decrypt(encoded)
		s.Require().Error(err)
		s.True(IsIntegrityFailure(err))
	})
}

func (s *CipherSuite) TestMalformedInput() {
	cases := map[string]string{
		"not delimited":      "deadbeef",
		"two parts":          "deadbeef:deadbeef",
		"four parts":         "aa:bb:cc:dd",
		"short nonce":        "dead:" + strings.Repeat("ab", 16) + ":beef",
		"short tag":          strings.Repeat("ab", 12) + ":dead:beef",
		"non-hex nonce":      strings.Repeat("zz", 12) + ":" + strings.Repeat("ab", 16) + ":beef",
		"non-hex ciphertext": strings.Repeat("ab", 12) + ":" + strings.Repeat("ab", 16) + ":zzzz",
	}
	for name, input := range cases {
		s.Run(name, func() {
			_, err := s.cipher.Decrypt(input)
			s.Require().Error(err)
			s.False(IsIntegrityFailure(err), "malformed input must not report as integrity failure")
		})
	}
}

func (s *CipherSuite) TestHashForIndex() {
	s.Equal("", HashForIndex(""))
	s.Equal("", HashForIndex("  "))

	a := HashForIndex("athlete-42")
	s.Len(a, 64)
	s.Equal(a, HashForIndex("athlete-42"))
	s.NotEqual(a, HashForIndex("athlete-43"))
}
