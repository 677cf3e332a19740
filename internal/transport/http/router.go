package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"varsityhub/internal/access"
	"varsityhub/internal/directory"
	"varsityhub/internal/session"
	"varsityhub/pkg/platform/middleware/metadata"
)

// RouterDeps carries everything the router wires together.
type RouterDeps struct {
	Handler   *Handler
	Gate      *access.Gate
	Sessions  *session.Service
	TRL       session.RevocationList
	Directory directory.Store
}

// NewRouter wires all routes. PHI routes sit behind session auth plus the
// health data gate; compliance reporting is restricted to director-level roles.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	h := deps.Handler

	// PHI routes: session auth, then the health data gate.
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Sessions, deps.TRL, deps.Directory, h.logger))
		r.Use(RequireHealthAccess(deps.Gate))

		r.Get("/athletes/{athleteID}/medical-history", h.handleGetMedicalHistory)
		r.Put("/athletes/{athleteID}/medical-history", h.handlePutMedicalHistory)
		r.Post("/athletes/{athleteID}/injuries", h.handleRecordInjury)
		r.Get("/athletes/{athleteID}/injuries", h.handleListInjuries)
		r.Get("/injuries/{incidentID}", h.handleGetInjury)
		r.Post("/health-data/tokens", h.handleIssueToken)
		r.Post("/health-data/tokens/verify", h.handleVerifyToken)
	})

	// Compliance reporting: director-level roles only.
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Sessions, deps.TRL, deps.Directory, h.logger))
		r.Use(RequireRole(deps.Gate,
			directory.RoleDistrictAthleticDirector,
			directory.RoleDistrictHeadAthleticTrainer,
			directory.RoleSchoolAthleticDirector,
		))

		r.Get("/audit/entries", h.handleQueryAudit)
		r.Get("/audit/verify", h.handleVerifyAudit)
	})

	return r
}
