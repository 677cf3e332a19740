package phi

import "encoding/json"

// UnreadablePlaceholder replaces a field whose ciphertext cannot be opened.
// It is deliberately loud: a clinician must never mistake an undecryptable
// allergies field for "patient has no allergies".
const UnreadablePlaceholder = "[ENCRYPTED - UNABLE TO DECRYPT]"

// RecordFields is the canonical allow-list of PHI attributes subject to
// field-level encryption. Attributes outside this list are stored as-is.
var RecordFields = []string{
	"allergies",
	"medications",
	"medicalConditions",
	"emergencyContact",
	"physicianNotes",
	"injuryHistory",
	"treatmentNotes",
	"diagnosticResults",
	"insuranceInfo",
}

// EncryptFields returns a copy of rec with every allow-listed field encrypted.
// Fields absent from rec or empty are left alone; non-listed fields pass
// through untouched. Encryption failure aborts the whole write, an
// unencrypted PHI attribute must never reach storage.
func (c *Cipher) EncryptFields(rec map[string]string, fields []string) (map[string]string, error) {
	if rec == nil {
		return nil, nil
	}
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, f := range fields {
		v, ok := out[f]
		if !ok || v == "" {
			continue
		}
		enc, err := c.Encrypt(v)
		if err != nil {
			return nil, err
		}
		out[f] = enc
	}
	return out, nil
}

// DecryptFields returns a copy of rec with every allow-listed field decrypted.
// A field that fails to decrypt is replaced with UnreadablePlaceholder and
// reported in the second return value; one corrupted field never blocks
// access to the rest of the record.
func (c *Cipher) DecryptFields(rec map[string]string, fields []string) (map[string]string, []string) {
	if rec == nil {
		return nil, nil
	}
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	var failed []string
	for _, f := range fields {
		v, ok := out[f]
		if !ok || v == "" {
			continue
		}
		plain, err := c.Decrypt(v)
		if err != nil {
			out[f] = UnreadablePlaceholder
			failed = append(failed, f)
			continue
		}
		out[f] = plain
	}
	return out, failed
}

// EncryptJSON serializes a structured sub-document (vitals, clearance forms)
// and encrypts it as a single field.
func (c *Cipher) EncryptJSON(doc any) (string, error) {
	if doc == nil {
		return "", nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return c.Encrypt(string(raw))
}

// DecryptJSON opens a field produced by EncryptJSON into dest. Callers decide
// how to degrade when the document is unreadable.
func (c *Cipher) DecryptJSON(encoded string, dest any) error {
	if encoded == "" {
		return nil
	}
	raw, err := c.Decrypt(encoded)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}
