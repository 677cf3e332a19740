package phi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FieldsSuite struct {
	suite.Suite
	cipher *Cipher
}

func (s *FieldsSuite) SetupTest() {
	s.cipher = testCipher()
}

func TestFieldsSuite(t *testing.T) {
	suite.Run(t, new(FieldsSuite))
}

func (s *FieldsSuite) TestEncryptFields() {
	rec := map[string]string{
		"allergies":     "penicillin",
		"medications":   "none",
		"athleteName":   "Jordan Example", // not on the allow-list
		"insuranceInfo": "",               // empty stays empty
	}

	encrypted, err := s.cipher.EncryptFields(rec, RecordFields)
	s.Require().NoError(err)

	s.NotEqual("penicillin", encrypted["allergies"])
	s.Len(strings.Split(encrypted["allergies"], ":"), 3)
	s.NotEqual("none", encrypted["medications"])
	s.Equal("Jordan Example", encrypted["athleteName"])
	s.Equal("", encrypted["insuranceInfo"])

	// The input record is not mutated.
	s.Equal("penicillin", rec["allergies"])
}

func (s *FieldsSuite) TestDecryptFieldsRoundTrip() {
	rec := map[string]string{
		"allergies":      "penicillin",
		"physicianNotes": "cleared for contact sports",
	}
	encrypted, err := s.cipher.EncryptFields(rec, RecordFields)
	s.Require().NoError(err)

	decrypted, failed := s.cipher.DecryptFields(encrypted, RecordFields)
	s.Empty(failed)
	s.Equal("penicillin", decrypted["allergies"])
	s.Equal("cleared for contact sports", decrypted["physicianNotes"])
}

func (s *FieldsSuite) TestCorruptedFieldGetsPlaceholder() {
	rec := map[string]string{
		"allergies":      "penicillin",
		"physicianNotes": "cleared for contact sports",
	}
	encrypted, err := s.cipher.EncryptFields(rec, RecordFields)
	s.Require().NoError(err)

	// Corrupt one field; the other must still decrypt.
	encrypted["allergies"] = "garbage-not-a-ciphertext"

	decrypted, failed := s.cipher.DecryptFields(encrypted, RecordFields)
	s.Equal([]string{"allergies"}, failed)
	s.Equal(UnreadablePlaceholder, decrypted["allergies"])
	s.Equal("cleared for contact sports", decrypted["physicianNotes"])
}

func (s *FieldsSuite) TestNilRecordPassthrough() {
	encrypted, err := s.cipher.EncryptFields(nil, RecordFields)
	s.Require().NoError(err)
	s.Nil(encrypted)

	decrypted, failed := s.cipher.DecryptFields(nil, RecordFields)
	s.Nil(decrypted)
	s.Nil(failed)
}

func (s *FieldsSuite) TestJSONDocuments() {
	type clearance struct {
		ClearedBy string `json:"clearedBy"`
		Stages    []int  `json:"stages"`
	}

	sealed, err := s.cipher.EncryptJSON(clearance{ClearedBy: "Dr. Reyes", Stages: []int{1, 2, 3}})
	s.Require().NoError(err)
	s.Len(strings.Split(sealed, ":"), 3)

	var out clearance
	s.Require().NoError(s.cipher.DecryptJSON(sealed, &out))
	s.Equal("Dr. Reyes", out.ClearedBy)
	s.Equal([]int{1, 2, 3}, out.Stages)

	s.Run("tampered document fails integrity", func() {
		tampered := []byte(sealed)
		if tampered[0] == '0' {
			tampered[0] = '1'
		} else {
			tampered[0] = '0'
		}
		var dest clearance
		err := s.cipher.DecryptJSON(string(tampered), &dest)
		s.Require().Error(err)
	})
}
