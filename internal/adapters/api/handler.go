package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"willow-auction-engine/internal/domain/shared"
	"willow-auction-engine/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler exposes the engine to request handlers over JSON. Every lead
// read passes through the finalizer, so callers always observe a
// trustworthy auction status without any background process.
type Handler struct {
	intake inbound.LeadIntake
	engine inbound.AuctionEngine
	bids   inbound.BidService
	logger zerolog.Logger
}

type HandlerParams struct {
	Intake inbound.LeadIntake
	Engine inbound.AuctionEngine
	Bids   inbound.BidService
	Logger zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		intake: params.Intake,
		engine: params.Engine,
		bids:   params.Bids,
		logger: params.Logger.With().Str("component", "api_handler").Logger(),
	}
}

// Register mounts the engine routes on the given mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/leads", h.handleRegisterLead)
	mux.HandleFunc("GET /v1/leads/{id}", h.handleGetLead)
	mux.HandleFunc("POST /v1/leads/{id}/bids", h.handlePlaceBid)
	mux.HandleFunc("GET /v1/leads/{id}/bids", h.handleListBids)
}

func (h *Handler) handleRegisterLead(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.intake.RegisterLead(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	l, err := h.engine.GetLead(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	var body struct {
		AgentID uuid.UUID `json:"agent_id"`
		Amount  int64     `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, placed, err := h.bids.ApplyBid(r.Context(), inbound.PlaceBidRequest{
		LeadID:  leadID,
		AgentID: body.AgentID,
		Amount:  body.Amount,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"bid":  placed,
		"lead": l,
	})
}

func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	bids, err := h.bids.GetBids(r.Context(), leadID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bids)
}

// writeEngineError maps engine errors onto HTTP statuses. Validation
// rejections carry the violated rule and minimum acceptable amount so
// bidders get an actionable message.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":          ve.Error(),
			"rule":           ve.Rule,
			"min_acceptable": ve.MinAcceptable,
		})
	case errors.Is(err, shared.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrAuctionNotOpen), errors.Is(err, shared.ErrBidConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Engine request failed")
		writeError(w, http.StatusBadGateway, "store unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
