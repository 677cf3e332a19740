package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"varsityhub/pkg/platform/sentinel"
)

// Postgres reads principal capability flags from the users table owned by
// the user-management service.
type Postgres struct {
	db *sql.DB
}

// NewPostgres builds a Postgres-backed directory.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// GetPrincipal implements Store.
func (s *Postgres) GetPrincipal(ctx context.Context, id string) (Principal, error) {
	query := `
		SELECT id, hipaa_training_completed, medical_data_access,
		       ferpa_agreement_signed, compliance_role, organization_id
		FROM users
		WHERE id = $1
	`
	var (
		p              Principal
		role           sql.NullString
		organizationID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.HIPAATrainingCompleted,
		&p.MedicalDataAccess,
		&p.FERPAAgreementSigned,
		&role,
		&organizationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, fmt.Errorf("principal %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Principal{}, fmt.Errorf("get principal: %w", err)
	}
	p.ComplianceRole = ComplianceRole(role.String)
	p.OrganizationID = organizationID.String
	return p, nil
}
