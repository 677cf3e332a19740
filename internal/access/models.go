// Package access decides whether a principal may touch a given data
// classification. Rules are centralized and pure; every evaluation, allow or
// deny, emits exactly one audit entry.
package access

import "varsityhub/internal/directory"

// Classification is the data category being requested.
type Classification string

const (
	ClassificationHealthData         Classification = "health_data"
	ClassificationStudentData        Classification = "student_data"
	ClassificationAdministrativeData Classification = "administrative_data"
)

// ViolationCode is the machine-readable denial reason. Callers use it to
// route the user to the right remediation flow.
type ViolationCode string

const (
	ViolationTrainingIncomplete ViolationCode = "hipaa_training_incomplete"
	ViolationPermissionDenied   ViolationCode = "hipaa_permission_denied"
	ViolationRoleRestriction    ViolationCode = "hipaa_role_restriction"
	ViolationAgreementUnsigned  ViolationCode = "ferpa_agreement_unsigned"
	ViolationNoOrganization     ViolationCode = "ferpa_organization_required"
	ViolationAdminRole          ViolationCode = "role_restriction"
)

// Remediation paths surfaced with the matching violation codes.
const (
	RedirectHIPAATraining  = "/compliance/hipaa-training"
	RedirectFERPAAgreement = "/compliance/ferpa-agreement"
)

// Capabilities is the descriptor handed to the caller on allow. Read-only
// request-scoped metadata, not a new grant; it must not outlive the request.
type Capabilities struct {
	HasHIPAAAccess    bool
	HasFERPAAccess    bool
	ComplianceRole    directory.ComplianceRole
	MedicalDataAccess bool
}

// Decision is the ephemeral outcome of one gate evaluation. Never persisted;
// its audit entry is the durable record.
type Decision struct {
	Allowed        bool
	Classification Classification
	PrincipalID    string

	// Deny-side fields.
	Violation  ViolationCode
	Reason     string
	RedirectTo string

	// Allow-side descriptor.
	Capabilities Capabilities
}

// healthDataRoles is the fixed allow-list of roles permitted to touch
// health-classified data. District and school level health roles only.
var healthDataRoles = map[directory.ComplianceRole]bool{
	directory.RoleDistrictAthleticDirector:    true,
	directory.RoleDistrictHeadAthleticTrainer: true,
	directory.RoleSchoolAthleticDirector:      true,
	directory.RoleSchoolAthleticTrainer:       true,
}
