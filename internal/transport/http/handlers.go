package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"varsityhub/internal/audit"
	"varsityhub/internal/healthrecords"
	"varsityhub/internal/integrity"
	"varsityhub/pkg/platform/middleware/metadata"
	"varsityhub/pkg/platform/sentinel"
)

// TokenCheckCounter observes access token verification outcomes. A prometheus
// CounterVec bound to (result) satisfies it via a small adapter; nil disables.
type TokenCheckCounter interface {
	Observe(result string)
}

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	records     *healthrecords.Service
	sink        *audit.Sink
	tokens      *integrity.TokenIssuer
	logger      *slog.Logger
	tokenChecks TokenCheckCounter
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithTokenCheckCounter wires token verification metrics.
func WithTokenCheckCounter(c TokenCheckCounter) HandlerOption {
	return func(h *Handler) { h.tokenChecks = c }
}

// NewHandler builds the HTTP handler set.
func NewHandler(records *healthrecords.Service, sink *audit.Sink, tokens *integrity.TokenIssuer, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		records: records,
		sink:    sink,
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) accessMeta(r *http.Request) healthrecords.AccessMeta {
	ctx := r.Context()
	principal, _ := PrincipalFrom(ctx)
	return healthrecords.AccessMeta{
		ActorID:       principal.ID,
		NetworkOrigin: metadata.GetClientIP(ctx),
		ClientAgent:   metadata.SummarizeUserAgent(metadata.GetUserAgent(ctx)),
	}
}

// --- medical history ---

type medicalHistoryRequest struct {
	Attributes map[string]string `json:"attributes"`
}

type medicalHistoryResponse struct {
	ID         uuid.UUID         `json:"id"`
	AthleteID  string            `json:"athleteId"`
	Attributes map[string]string `json:"attributes"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func (h *Handler) handleGetMedicalHistory(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	mh, err := h.records.GetMedicalHistory(r.Context(), h.accessMeta(r), athleteID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, medicalHistoryResponse{
		ID:         mh.ID,
		AthleteID:  mh.AthleteID,
		Attributes: mh.Attributes,
		UpdatedAt:  mh.UpdatedAt,
	})
}

func (h *Handler) handlePutMedicalHistory(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	var req medicalHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := h.records.UpsertMedicalHistory(r.Context(), h.accessMeta(r), healthrecords.MedicalHistory{
		AthleteID:  athleteID,
		Attributes: req.Attributes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- injury incidents ---

type injuryRequest struct {
	Sport             string                `json:"sport"`
	BodyPart          string                `json:"bodyPart"`
	OccurredAt        time.Time             `json:"occurredAt"`
	SpecificDiagnosis string                `json:"specificDiagnosis"`
	InitialAssessment string                `json:"initialAssessment"`
	ImmediateCarePlan string                `json:"immediateCarePlan"`
	ReferralTo        string                `json:"referralTo"`
	WitnessStatements string                `json:"witnessStatements"`
	Vitals            *healthrecords.Vitals `json:"vitals,omitempty"`
}

type injuryResponse struct {
	ID                uuid.UUID             `json:"id"`
	AthleteID         string                `json:"athleteId"`
	Sport             string                `json:"sport"`
	BodyPart          string                `json:"bodyPart"`
	OccurredAt        time.Time             `json:"occurredAt"`
	SpecificDiagnosis string                `json:"specificDiagnosis"`
	InitialAssessment string                `json:"initialAssessment"`
	ImmediateCarePlan string                `json:"immediateCarePlan"`
	ReferralTo        string                `json:"referralTo"`
	WitnessStatements string                `json:"witnessStatements"`
	Vitals            *healthrecords.Vitals `json:"vitals,omitempty"`
	VitalsUnreadable  bool                  `json:"vitalsUnreadable,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func toInjuryResponse(inc healthrecords.InjuryIncident) injuryResponse {
	return injuryResponse{
		ID:                inc.ID,
		AthleteID:         inc.AthleteID,
		Sport:             inc.Sport,
		BodyPart:          inc.BodyPart,
		OccurredAt:        inc.OccurredAt,
		SpecificDiagnosis: inc.SpecificDiagnosis,
		InitialAssessment: inc.InitialAssessment,
		ImmediateCarePlan: inc.ImmediateCarePlan,
		ReferralTo:        inc.ReferralTo,
		WitnessStatements: inc.WitnessStatements,
		Vitals:            inc.Vitals,
		VitalsUnreadable:  inc.VitalsUnreadable,
		CreatedAt:         inc.CreatedAt,
	}
}

func (h *Handler) handleRecordInjury(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	var req injuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	inc, err := h.records.RecordInjuryIncident(r.Context(), h.accessMeta(r), healthrecords.InjuryIncident{
		AthleteID:         athleteID,
		Sport:             req.Sport,
		BodyPart:          req.BodyPart,
		OccurredAt:        req.OccurredAt,
		SpecificDiagnosis: req.SpecificDiagnosis,
		InitialAssessment: req.InitialAssessment,
		ImmediateCarePlan: req.ImmediateCarePlan,
		ReferralTo:        req.ReferralTo,
		WitnessStatements: req.WitnessStatements,
		Vitals:            req.Vitals,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": inc.ID.String()})
}

func (h *Handler) handleListInjuries(w http.ResponseWriter, r *http.Request) {
	athleteID := chi.URLParam(r, "athleteID")
	incs, err := h.records.ListInjuryIncidents(r.Context(), h.accessMeta(r), athleteID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]injuryResponse, len(incs))
	for i, inc := range incs {
		out[i] = toInjuryResponse(inc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetInjury(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "incidentID"))
	if err != nil {
		http.Error(w, "invalid incident id", http.StatusBadRequest)
		return
	}
	inc, err := h.records.GetInjuryIncident(r.Context(), h.accessMeta(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInjuryResponse(inc))
}

// --- access tokens ---

type tokenRequest struct {
	DataType   string `json:"dataType"`
	TTLSeconds int    `json:"ttlSeconds"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TTLSeconds <= 0 {
		req.TTLSeconds = 3600
	}
	principal, _ := PrincipalFrom(r.Context())
	token, err := h.tokens.Issue(principal.ID, req.DataType, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type tokenVerifyRequest struct {
	Token string `json:"token"`
}

type tokenVerifyResponse struct {
	Valid       bool      `json:"valid"`
	PrincipalID string    `json:"principalId,omitempty"`
	DataType    string    `json:"dataType,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req tokenVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	claims := h.tokens.Verify(req.Token)
	if h.tokenChecks != nil {
		result := "invalid"
		if claims != nil {
			result = "valid"
		}
		h.tokenChecks.Observe(result)
	}
	if claims == nil {
		writeJSON(w, http.StatusOK, tokenVerifyResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, tokenVerifyResponse{
		Valid:       true,
		PrincipalID: claims.PrincipalID,
		DataType:    claims.DataType,
		ExpiresAt:   claims.ExpiresAt,
	})
}

// --- audit reporting ---

type auditEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	ActorID       string    `json:"actorId"`
	ActionType    string    `json:"actionType"`
	ResourceType  string    `json:"resourceType"`
	ResourceID    string    `json:"resourceId,omitempty"`
	NetworkOrigin string    `json:"networkOrigin"`
	ClientAgent   string    `json:"clientAgent"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	IntegrityHash string    `json:"integrityHash"`
}

func auditFilterFromQuery(r *http.Request) audit.Filter {
	q := r.URL.Query()
	filter := audit.Filter{
		ActorID:      q.Get("actorId"),
		ResourceType: audit.ResourceType(q.Get("resourceType")),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = t
		}
	}
	return filter
}

func (h *Handler) handleQueryAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sink.Query(r.Context(), auditFilterFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = auditEntryResponse{
			ID:            e.ID,
			ActorID:       e.ActorID,
			ActionType:    string(e.ActionType),
			ResourceType:  string(e.ResourceType),
			ResourceID:    e.ResourceID,
			NetworkOrigin: e.NetworkOrigin,
			ClientAgent:   e.ClientAgent,
			Notes:         e.Notes,
			CreatedAt:     e.CreatedAt,
			IntegrityHash: e.IntegrityHash,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleVerifyAudit(w http.ResponseWriter, r *http.Request) {
	tampered, err := h.sink.VerifyRange(r.Context(), auditFilterFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ids := make([]uuid.UUID, len(tampered))
	for i, e := range tampered {
		ids[i] = e.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tamperedCount": len(ids),
		"tamperedIds":   ids,
	})
}

// --- shared helpers ---

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates infrastructure facts to status codes. Unexpected
// errors (caller bugs, key mismatches) become generic 500s without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
