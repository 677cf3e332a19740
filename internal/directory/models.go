// Package directory exposes a read-only view over principals and their
// compliance capabilities. The user-management system owns and mutates these
// flags; this core only reads them as gate input.
package directory

import "context"

// ComplianceRole is the fixed set of organizational roles the gate recognizes.
type ComplianceRole string

const (
	RoleDistrictAthleticDirector    ComplianceRole = "district_athletic_director"
	RoleDistrictHeadAthleticTrainer ComplianceRole = "district_head_athletic_trainer"
	RoleSchoolAthleticDirector      ComplianceRole = "school_athletic_director"
	RoleSchoolAthleticTrainer       ComplianceRole = "school_athletic_trainer"
	RoleHeadCoach                   ComplianceRole = "head_coach"
	RoleAssistantCoach              ComplianceRole = "assistant_coach"
	RoleScorekeeper                 ComplianceRole = "scorekeeper"
)

// Principal carries the capability flags the access gate evaluates.
type Principal struct {
	ID                     string
	HIPAATrainingCompleted bool
	MedicalDataAccess      bool
	FERPAAgreementSigned   bool
	ComplianceRole         ComplianceRole
	OrganizationID         string
}

// Store looks up principals by ID. Returns sentinel.ErrNotFound (wrapped)
// when the principal does not exist.
type Store interface {
	GetPrincipal(ctx context.Context, id string) (Principal, error)
}
