// Package healthrecords manages athlete medical histories and injury
// incidents. PHI attributes are encrypted before they reach the repository
// and decrypted, behind the access gate, on the way out.
package healthrecords

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MedicalHistory is an athlete's medical record. Attributes holds the
// PHI-classified values keyed by the canonical field names; in the repository
// they are ciphertext, in service output they are plaintext or the
// unreadable placeholder.
type MedicalHistory struct {
	ID         uuid.UUID
	AthleteID  string
	Attributes map[string]string
	UpdatedAt  time.Time
}

// Vitals is the structured sub-document captured at an injury scene. Stored
// encrypted as a single JSON field.
type Vitals struct {
	HeartRate       int     `json:"heartRate"`
	BloodPressure   string  `json:"bloodPressure"`
	TemperatureF    float64 `json:"temperatureF"`
	RespiratoryRate int     `json:"respiratoryRate"`
}

// InjuryIncident is one reported injury. The free-text clinical fields are
// PHI and stored encrypted; sport and body part are not.
type InjuryIncident struct {
	ID         uuid.UUID
	AthleteID  string
	Sport      string
	BodyPart   string
	OccurredAt time.Time

	// PHI fields, ciphertext at rest.
	SpecificDiagnosis string
	InitialAssessment string
	ImmediateCarePlan string
	ReferralTo        string
	WitnessStatements string

	// Vitals is the plaintext view; VitalsEncrypted is the at-rest form.
	// VitalsUnreadable marks a stored document that failed its integrity
	// check on read.
	Vitals           *Vitals
	VitalsEncrypted  string
	VitalsUnreadable bool

	CreatedAt time.Time
}

// Repo is the persistence contract. Implementations only ever see encrypted
// PHI values.
type Repo interface {
	UpsertMedicalHistory(ctx context.Context, mh MedicalHistory) error
	GetMedicalHistory(ctx context.Context, athleteID string) (MedicalHistory, error)
	SaveInjuryIncident(ctx context.Context, inc InjuryIncident) error
	GetInjuryIncident(ctx context.Context, id uuid.UUID) (InjuryIncident, error)
	ListInjuryIncidents(ctx context.Context, athleteID string) ([]InjuryIncident, error)
}
