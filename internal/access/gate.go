package access

import (
	"context"
	"fmt"
	"strings"

	"varsityhub/internal/audit"
	"varsityhub/internal/directory"
)

// Request is one gate evaluation: this principal wants this classification.
// AllowedRoles applies only to administrative data, where the allow-list is
// supplied per route rather than fixed at the gate.
type Request struct {
	Principal      directory.Principal
	Classification Classification
	AllowedRoles   []directory.ComplianceRole

	// Client metadata carried into the audit entry.
	NetworkOrigin string
	ClientAgent   string
}

// DecisionCounter observes gate outcomes. A prometheus CounterVec bound to
// (classification, outcome) satisfies it via a small adapter; nil disables.
type DecisionCounter interface {
	Observe(classification, outcome string)
}

// Gate evaluates access policy and audits every decision. Stateless between
// requests; safe for concurrent use.
type Gate struct {
	sink      *audit.Sink
	decisions DecisionCounter
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithDecisionCounter wires outcome metrics.
func WithDecisionCounter(c DecisionCounter) GateOption {
	return func(g *Gate) { g.decisions = c }
}

// NewGate builds a Gate emitting through the given audit sink.
func NewGate(sink *audit.Sink, opts ...GateOption) *Gate {
	g := &Gate{sink: sink}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the policy for the request and emits exactly one audit entry
// describing the outcome. The gated operation must not start until this has
// returned an allowed decision.
func (g *Gate) Evaluate(ctx context.Context, req Request) Decision {
	d := evaluate(req)

	outcome := "denied"
	if d.Allowed {
		outcome = "allowed"
	}
	if g.decisions != nil {
		g.decisions.Observe(string(req.Classification), outcome)
	}

	g.sink.Append(ctx, audit.Entry{
		ActorID:       req.Principal.ID,
		ActionType:    audit.ActionDataAccess,
		ResourceType:  audit.ResourceType(req.Classification),
		NetworkOrigin: req.NetworkOrigin,
		ClientAgent:   req.ClientAgent,
		Notes:         d.Reason,
	})
	return d
}

// EvaluateAll chains independent evaluations and short-circuits on the first
// denial, so a request that already failed is not double-audited.
func (g *Gate) EvaluateAll(ctx context.Context, reqs ...Request) Decision {
	var last Decision
	for _, req := range reqs {
		last = g.Evaluate(ctx, req)
		if !last.Allowed {
			return last
		}
	}
	return last
}

// evaluate applies the per-classification rule chain. Pure domain logic: no
// I/O, no side effects. Rule order is part of the contract; the first failing
// condition determines the denial reason.
func evaluate(req Request) Decision {
	switch req.Classification {
	case ClassificationHealthData:
		return evaluateHealthData(req.Principal)
	case ClassificationStudentData:
		return evaluateStudentData(req.Principal)
	case ClassificationAdministrativeData:
		return evaluateAdministrative(req.Principal, req.AllowedRoles)
	default:
		return Decision{
			Classification: req.Classification,
			PrincipalID:    req.Principal.ID,
			Violation:      ViolationAdminRole,
			Reason:         fmt.Sprintf("access denied - unknown classification %q", req.Classification),
		}
	}
}

// evaluateHealthData applies the HIPAA-flavored rule chain:
//  1. training completion
//  2. explicit medical data grant
//  3. role membership in the health allow-list
func evaluateHealthData(p directory.Principal) Decision {
	d := Decision{Classification: ClassificationHealthData, PrincipalID: p.ID}

	if !p.HIPAATrainingCompleted {
		d.Violation = ViolationTrainingIncomplete
		d.Reason = "HIPAA access denied - training not completed"
		d.RedirectTo = RedirectHIPAATraining
		return d
	}
	if !p.MedicalDataAccess {
		d.Violation = ViolationPermissionDenied
		d.Reason = "HIPAA access denied - insufficient permissions"
		return d
	}
	if !healthDataRoles[p.ComplianceRole] {
		d.Violation = ViolationRoleRestriction
		d.Reason = "HIPAA access denied - insufficient role"
		return d
	}

	d.Allowed = true
	d.Reason = "HIPAA access granted"
	d.Capabilities = Capabilities{
		HasHIPAAAccess:    true,
		HasFERPAAccess:    p.FERPAAgreementSigned,
		ComplianceRole:    p.ComplianceRole,
		MedicalDataAccess: true,
	}
	return d
}

// evaluateStudentData applies the FERPA-flavored rule chain:
//  1. signed agreement
//  2. organizational affiliation
func evaluateStudentData(p directory.Principal) Decision {
	d := Decision{Classification: ClassificationStudentData, PrincipalID: p.ID}

	if !p.FERPAAgreementSigned {
		d.Violation = ViolationAgreementUnsigned
		d.Reason = "FERPA access denied - agreement not signed"
		d.RedirectTo = RedirectFERPAAgreement
		return d
	}
	if p.OrganizationID == "" {
		d.Violation = ViolationNoOrganization
		d.Reason = "FERPA access denied - no organization affiliation"
		return d
	}

	d.Allowed = true
	d.Reason = "FERPA access granted"
	d.Capabilities = Capabilities{
		HasHIPAAAccess:    p.MedicalDataAccess,
		HasFERPAAccess:    true,
		ComplianceRole:    p.ComplianceRole,
		MedicalDataAccess: p.MedicalDataAccess,
	}
	return d
}

// evaluateAdministrative checks role membership against the route-supplied
// allow-list.
func evaluateAdministrative(p directory.Principal, allowed []directory.ComplianceRole) Decision {
	d := Decision{Classification: ClassificationAdministrativeData, PrincipalID: p.ID}

	for _, role := range allowed {
		if p.ComplianceRole == role && role != "" {
			d.Allowed = true
			d.Reason = fmt.Sprintf("Role access granted - %s", p.ComplianceRole)
			d.Capabilities = Capabilities{
				HasHIPAAAccess:    p.MedicalDataAccess,
				HasFERPAAccess:    p.FERPAAgreementSigned,
				ComplianceRole:    p.ComplianceRole,
				MedicalDataAccess: p.MedicalDataAccess,
			}
			return d
		}
	}

	actual := string(p.ComplianceRole)
	if actual == "" {
		actual = "none"
	}
	d.Violation = ViolationAdminRole
	d.Reason = fmt.Sprintf("Role access denied - required: %s, actual: %s", joinRoles(allowed), actual)
	return d
}

func joinRoles(roles []directory.ComplianceRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
