package healthrecords

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"varsityhub/pkg/platform/sentinel"
)

// PostgresRepo persists health records. PHI columns only ever hold the
// nonce:tag:ciphertext wire format; the plaintext never reaches the database.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo builds a Postgres-backed repository.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// UpsertMedicalHistory implements Repo. Attributes are stored as a JSONB map
// of field name to encrypted value, matching the schema the athletics
// platform already defines.
func (r *PostgresRepo) UpsertMedicalHistory(ctx context.Context, mh MedicalHistory) error {
	attrs, err := json.Marshal(mh.Attributes)
	if err != nil {
		return fmt.Errorf("marshal medical history attributes: %w", err)
	}
	query := `
		INSERT INTO medical_histories (id, athlete_id, attributes, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (athlete_id)
		DO UPDATE SET attributes = EXCLUDED.attributes, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, mh.ID, mh.AthleteID, attrs, mh.UpdatedAt); err != nil {
		return fmt.Errorf("upsert medical history: %w", err)
	}
	return nil
}

// GetMedicalHistory implements Repo.
func (r *PostgresRepo) GetMedicalHistory(ctx context.Context, athleteID string) (MedicalHistory, error) {
	query := `
		SELECT id, athlete_id, attributes, updated_at
		FROM medical_histories
		WHERE athlete_id = $1
	`
	var (
		mh   MedicalHistory
		blob []byte
	)
	err := r.db.QueryRowContext(ctx, query, athleteID).Scan(&mh.ID, &mh.AthleteID, &blob, &mh.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MedicalHistory{}, fmt.Errorf("medical history for %s: %w", athleteID, sentinel.ErrNotFound)
	}
	if err != nil {
		return MedicalHistory{}, fmt.Errorf("get medical history: %w", err)
	}
	if err := json.Unmarshal(blob, &mh.Attributes); err != nil {
		return MedicalHistory{}, fmt.Errorf("unmarshal medical history attributes: %w", err)
	}
	return mh, nil
}

// SaveInjuryIncident implements Repo.
func (r *PostgresRepo) SaveInjuryIncident(ctx context.Context, inc InjuryIncident) error {
	query := `
		INSERT INTO injury_incidents (
			id, athlete_id, sport, body_part, occurred_at,
			specific_diagnosis, initial_assessment, immediate_care_plan,
			referral_to, witness_statements, vitals, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		inc.ID, inc.AthleteID, inc.Sport, inc.BodyPart, inc.OccurredAt,
		inc.SpecificDiagnosis, inc.InitialAssessment, inc.ImmediateCarePlan,
		inc.ReferralTo, inc.WitnessStatements, inc.VitalsEncrypted, inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert injury incident: %w", err)
	}
	return nil
}

// GetInjuryIncident implements Repo.
func (r *PostgresRepo) GetInjuryIncident(ctx context.Context, id uuid.UUID) (InjuryIncident, error) {
	query := selectIncident + " WHERE id = $1"
	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return InjuryIncident{}, fmt.Errorf("injury incident %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return InjuryIncident{}, fmt.Errorf("get injury incident: %w", err)
	}
	return inc, nil
}

// ListInjuryIncidents implements Repo.
func (r *PostgresRepo) ListInjuryIncidents(ctx context.Context, athleteID string) ([]InjuryIncident, error) {
	query := selectIncident + " WHERE athlete_id = $1 ORDER BY created_at ASC"
	rows, err := r.db.QueryContext(ctx, query, athleteID)
	if err != nil {
		return nil, fmt.Errorf("list injury incidents: %w", err)
	}
	defer rows.Close()

	var out []InjuryIncident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan injury incident: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

const selectIncident = `
	SELECT id, athlete_id, sport, body_part, occurred_at,
	       specific_diagnosis, initial_assessment, immediate_care_plan,
	       referral_to, witness_statements, vitals, created_at
	FROM injury_incidents
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (InjuryIncident, error) {
	var inc InjuryIncident
	err := row.Scan(
		&inc.ID, &inc.AthleteID, &inc.Sport, &inc.BodyPart, &inc.OccurredAt,
		&inc.SpecificDiagnosis, &inc.InitialAssessment, &inc.ImmediateCarePlan,
		&inc.ReferralTo, &inc.WitnessStatements, &inc.VitalsEncrypted, &inc.CreatedAt,
	)
	return inc, err
}
