// Package httpapi exposes the raffle engine over HTTP. Mutating endpoints act
// on behalf of the authenticated caller; the identity comes from the request
// context set by the auth middleware.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	raffleservice "github.com/R3E-Network/raffle-engine/internal/app/services/raffle"
	"github.com/R3E-Network/raffle-engine/internal/app/storage"
	"github.com/R3E-Network/raffle-engine/internal/escrow"
	"github.com/R3E-Network/raffle-engine/internal/ledger"
	"github.com/R3E-Network/raffle-engine/internal/middleware"
	"github.com/R3E-Network/raffle-engine/internal/randomness"
	"github.com/R3E-Network/raffle-engine/internal/token"
	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// Handler serves the raffle HTTP API.
type Handler struct {
	service *raffleservice.Service
	gateway *randomness.Gateway
	log     *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(service *raffleservice.Service, gateway *randomness.Gateway, log *logger.Logger) *Handler {
	return &Handler{service: service, gateway: gateway, log: log}
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/raffle", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/raffle/open", h.handleOpenRound).Methods(http.MethodPost)
	router.HandleFunc("/raffle/tickets", h.handleBuyTicket).Methods(http.MethodPost)
	router.HandleFunc("/raffle/tickets/{number}", h.handleTicketOwner).Methods(http.MethodGet)
	router.HandleFunc("/raffle/close", h.handleCloseSales).Methods(http.MethodPost)
	router.HandleFunc("/raffle/cancel", h.handleCancelRound).Methods(http.MethodPost)
	router.HandleFunc("/raffle/prize/redeem", h.handleRedeemPrize).Methods(http.MethodPost)
	router.HandleFunc("/raffle/profits/claim", h.handleClaimProfits).Methods(http.MethodPost)
	router.HandleFunc("/raffle/refunds", h.handleRefundBalance).Methods(http.MethodGet)
	router.HandleFunc("/raffle/refunds/claim", h.handleClaimRefund).Methods(http.MethodPost)

	router.HandleFunc("/rounds", h.handleListRounds).Methods(http.MethodGet)
	router.HandleFunc("/rounds/{number}", h.handleGetRound).Methods(http.MethodGet)

	router.HandleFunc("/randomness/fulfillments", h.handleFulfillRandomness).Methods(http.MethodPost)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports the manager state and, when a round is active, its
// current snapshot.
func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"state":        string(h.service.State()),
		"round_number": h.service.RoundNumber(),
	}
	if round, ok := h.service.CurrentRound(); ok {
		resp["round"] = round
	}
	writeJSON(w, http.StatusOK, resp)
}

type openRoundRequest struct {
	TicketPrice int64 `json:"ticket_price"`
	TicketMin   int   `json:"ticket_min"`
	TicketMax   int   `json:"ticket_max"`
}

func (h *Handler) handleOpenRound(w http.ResponseWriter, r *http.Request) {
	var req openRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	round, err := h.service.OpenRound(r.Context(), middleware.CallerFromContext(r.Context()), req.TicketPrice, req.TicketMin, req.TicketMax)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

type buyTicketRequest struct {
	TicketNumber int `json:"ticket_number"`
}

func (h *Handler) handleBuyTicket(w http.ResponseWriter, r *http.Request) {
	var req buyTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	round, err := h.service.BuyTicket(r.Context(), middleware.CallerFromContext(r.Context()), req.TicketNumber)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *Handler) handleTicketOwner(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket number")
		return
	}

	owner, ok := h.service.OwnerOf(number)
	if !ok {
		writeError(w, http.StatusNotFound, "ticket not sold")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticket_number": number,
		"owner":         owner,
	})
}

func (h *Handler) handleCloseSales(w http.ResponseWriter, r *http.Request) {
	round, err := h.service.CloseSalesAndPickWinner(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *Handler) handleCancelRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.service.CancelRound(r.Context(), middleware.CallerFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *Handler) handleRedeemPrize(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	amount, err := h.service.RedeemPrize(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient": caller,
		"amount":    amount,
	})
}

func (h *Handler) handleClaimProfits(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	amount, err := h.service.ClaimProfits(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient": caller,
		"amount":    amount,
	})
}

func (h *Handler) handleRefundBalance(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"identity": caller,
		"balance":  h.service.RefundBalance(caller),
	})
}

func (h *Handler) handleClaimRefund(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	amount, err := h.service.ClaimRefund(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient": caller,
		"amount":    amount,
	})
}

func (h *Handler) handleListRounds(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	rounds, err := h.service.ListRounds(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds})
}

func (h *Handler) handleGetRound(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round number")
		return
	}

	round, err := h.service.GetRound(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

type fulfillRequest struct {
	RequestID   string `json:"request_id"`
	RandomValue uint64 `json:"random_value"`
}

// handleFulfillRandomness is the callback endpoint for the randomness
// provider. Correlation against the stored request ID is the only admission
// control; a stale or unknown ID is rejected.
func (h *Handler) handleFulfillRandomness(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	if err := h.gateway.Fulfill(r.Context(), req.RequestID, req.RandomValue); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "fulfilled"})
}

// writeServiceError maps domain errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, raffleservice.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, randomness.ErrUnknownRequest):
		status = http.StatusNotFound
	case errors.Is(err, raffleservice.ErrRoundAlreadyOpen),
		errors.Is(err, raffleservice.ErrRaffleNotOpen),
		errors.Is(err, raffleservice.ErrInvalidState),
		errors.Is(err, raffleservice.ErrNothingToRefund),
		errors.Is(err, ledger.ErrTicketAlreadySold),
		errors.Is(err, escrow.ErrAlreadyRedeemed),
		errors.Is(err, randomness.ErrAlreadyFulfilled),
		errors.Is(err, randomness.ErrRequestAlreadyPending):
		status = http.StatusConflict
	case errors.Is(err, raffleservice.ErrInvalidTicketRange),
		errors.Is(err, raffleservice.ErrInvalidTicketPrice),
		errors.Is(err, ledger.ErrInvalidTicketNumber),
		errors.Is(err, escrow.ErrInvalidFactor),
		errors.Is(err, escrow.ErrNegativeAmount):
		status = http.StatusBadRequest
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, escrow.ErrInsufficientEscrow):
		status = http.StatusPaymentRequired
	}

	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
