package healthrecords

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"varsityhub/internal/audit"
	"varsityhub/internal/phi"
)

// injuryPHIFields names the incident fields run through field encryption,
// in a fixed order so audit notes stay stable.
var injuryPHIFields = []string{
	"specificDiagnosis",
	"initialAssessment",
	"immediateCarePlan",
	"referralTo",
	"witnessStatements",
}

// Service encrypts on write, decrypts on read, and audits both directions.
// It must only be invoked after the access gate has allowed the request.
type Service struct {
	repo    Repo
	cipher  *phi.Cipher
	sink    *audit.Sink
	logger  *slog.Logger
	decrypt interface{ Inc() }
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithDecryptFailureCounter wires a counter incremented per unreadable field.
func WithDecryptFailureCounter(c interface{ Inc() }) ServiceOption {
	return func(s *Service) { s.decrypt = c }
}

// NewService builds a health records service.
func NewService(repo Repo, cipher *phi.Cipher, sink *audit.Sink, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		cipher: cipher,
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessMeta identifies who is touching PHI and from where, for the audit trail.
type AccessMeta struct {
	ActorID       string
	NetworkOrigin string
	ClientAgent   string
}

// UpsertMedicalHistory encrypts the PHI attributes and stores the record.
// Encryption failure aborts the write; unencrypted PHI never reaches storage.
func (s *Service) UpsertMedicalHistory(ctx context.Context, meta AccessMeta, mh MedicalHistory) error {
	if mh.ID == uuid.Nil {
		mh.ID = uuid.New()
	}
	mh.UpdatedAt = time.Now().UTC()

	encrypted, err := s.cipher.EncryptFields(mh.Attributes, phi.RecordFields)
	if err != nil {
		return fmt.Errorf("encrypt medical history: %w", err)
	}
	mh.Attributes = encrypted

	if err := s.repo.UpsertMedicalHistory(ctx, mh); err != nil {
		return err
	}
	s.auditAccess(ctx, meta, audit.ActionDataModification, mh.AthleteID,
		"Health data write - medical_history")
	return nil
}

// GetMedicalHistory loads and decrypts an athlete's medical history. A field
// that fails to decrypt comes back as the unreadable placeholder; the rest of
// the record is returned normally.
func (s *Service) GetMedicalHistory(ctx context.Context, meta AccessMeta, athleteID string) (MedicalHistory, error) {
	mh, err := s.repo.GetMedicalHistory(ctx, athleteID)
	if err != nil {
		return MedicalHistory{}, err
	}

	decrypted, failed := s.cipher.DecryptFields(mh.Attributes, phi.RecordFields)
	mh.Attributes = decrypted
	s.countUnreadable(ctx, "medical_history", athleteID, failed)

	entry := s.auditAccess(ctx, meta, audit.ActionDataAccess, athleteID,
		"Health data read - medical_history")
	s.logger.InfoContext(ctx, "health data accessed",
		"actor_id", meta.ActorID,
		"athlete_id", athleteID,
		"record", "medical_history",
		"integrity", hashPrefix(entry.IntegrityHash),
	)
	return mh, nil
}

// RecordInjuryIncident encrypts the clinical fields and the vitals document,
// then stores the incident.
func (s *Service) RecordInjuryIncident(ctx context.Context, meta AccessMeta, inc InjuryIncident) (InjuryIncident, error) {
	if inc.ID == uuid.Nil {
		inc.ID = uuid.New()
	}
	inc.CreatedAt = time.Now().UTC()

	fields := map[string]string{
		"specificDiagnosis": inc.SpecificDiagnosis,
		"initialAssessment": inc.InitialAssessment,
		"immediateCarePlan": inc.ImmediateCarePlan,
		"referralTo":        inc.ReferralTo,
		"witnessStatements": inc.WitnessStatements,
	}
	encrypted, err := s.cipher.EncryptFields(fields, injuryPHIFields)
	if err != nil {
		return InjuryIncident{}, fmt.Errorf("encrypt injury incident: %w", err)
	}
	inc.SpecificDiagnosis = encrypted["specificDiagnosis"]
	inc.InitialAssessment = encrypted["initialAssessment"]
	inc.ImmediateCarePlan = encrypted["immediateCarePlan"]
	inc.ReferralTo = encrypted["referralTo"]
	inc.WitnessStatements = encrypted["witnessStatements"]

	if inc.Vitals != nil {
		sealed, err := s.cipher.EncryptJSON(inc.Vitals)
		if err != nil {
			return InjuryIncident{}, fmt.Errorf("encrypt vitals: %w", err)
		}
		inc.VitalsEncrypted = sealed
		inc.Vitals = nil
	}

	if err := s.repo.SaveInjuryIncident(ctx, inc); err != nil {
		return InjuryIncident{}, err
	}
	s.auditAccess(ctx, meta, audit.ActionDataModification, inc.AthleteID,
		"Health data write - injury_incident")
	return inc, nil
}

// GetInjuryIncident loads and decrypts one incident.
func (s *Service) GetInjuryIncident(ctx context.Context, meta AccessMeta, id uuid.UUID) (InjuryIncident, error) {
	inc, err := s.repo.GetInjuryIncident(ctx, id)
	if err != nil {
		return InjuryIncident{}, err
	}
	out := s.decryptIncident(ctx, inc)

	entry := s.auditAccess(ctx, meta, audit.ActionDataAccess, inc.AthleteID,
		"Health data read - injury_incident")
	s.logger.InfoContext(ctx, "health data accessed",
		"actor_id", meta.ActorID,
		"athlete_id", inc.AthleteID,
		"record", "injury_incident",
		"integrity", hashPrefix(entry.IntegrityHash),
	)
	return out, nil
}

// ListInjuryIncidents loads and decrypts an athlete's incidents.
func (s *Service) ListInjuryIncidents(ctx context.Context, meta AccessMeta, athleteID string) ([]InjuryIncident, error) {
	incs, err := s.repo.ListInjuryIncidents(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	out := make([]InjuryIncident, len(incs))
	for i, inc := range incs {
		out[i] = s.decryptIncident(ctx, inc)
	}
	s.auditAccess(ctx, meta, audit.ActionDataAccess, athleteID,
		"Health data read - injury_incident list")
	return out, nil
}

func (s *Service) decryptIncident(ctx context.Context, inc InjuryIncident) InjuryIncident {
	fields := map[string]string{
		"specificDiagnosis": inc.SpecificDiagnosis,
		"initialAssessment": inc.InitialAssessment,
		"immediateCarePlan": inc.ImmediateCarePlan,
		"referralTo":        inc.ReferralTo,
		"witnessStatements": inc.WitnessStatements,
	}
	decrypted, failed := s.cipher.DecryptFields(fields, injuryPHIFields)
	inc.SpecificDiagnosis = decrypted["specificDiagnosis"]
	inc.InitialAssessment = decrypted["initialAssessment"]
	inc.ImmediateCarePlan = decrypted["immediateCarePlan"]
	inc.ReferralTo = decrypted["referralTo"]
	inc.WitnessStatements = decrypted["witnessStatements"]
	s.countUnreadable(ctx, "injury_incident", inc.AthleteID, failed)

	if inc.VitalsEncrypted != "" {
		var vitals Vitals
		if err := s.cipher.DecryptJSON(inc.VitalsEncrypted, &vitals); err != nil {
			inc.Vitals = nil
			inc.VitalsUnreadable = true
			s.countUnreadable(ctx, "injury_incident", inc.AthleteID, []string{"vitals"})
		} else {
			inc.Vitals = &vitals
		}
		inc.VitalsEncrypted = ""
	}
	return inc
}

func (s *Service) auditAccess(ctx context.Context, meta AccessMeta, action audit.ActionType, resourceID, notes string) audit.Entry {
	return s.sink.Append(ctx, audit.Entry{
		ActorID:       meta.ActorID,
		ActionType:    action,
		ResourceType:  audit.ResourceHealthData,
		ResourceID:    resourceID,
		NetworkOrigin: meta.NetworkOrigin,
		ClientAgent:   meta.ClientAgent,
		Notes:         notes,
	})
}

func (s *Service) countUnreadable(ctx context.Context, record, athleteID string, failed []string) {
	for _, field := range failed {
		if s.decrypt != nil {
			s.decrypt.Inc()
		}
		s.logger.WarnContext(ctx, "PHI field unreadable, placeholder substituted",
			"record", record,
			"athlete_id", athleteID,
			"field", field,
		)
	}
}

func hashPrefix(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
