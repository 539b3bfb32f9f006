/**
 * @description
 * This file contains the HTTP handlers for the transfer-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the transfer
 * orchestration logic.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and typed errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/instapay/transfer-service/internal/app"
	"github.com/instapay/transfer-service/internal/domain"
	"github.com/instapay/transfer-service/internal/store"
	"github.com/instapay/transfer-service/pkg/accountclient"
)

// TransferHandlers holds the application service that handlers will use.
type TransferHandlers struct {
	service *app.Service
}

// NewTransferHandlers creates a new instance of TransferHandlers.
func NewTransferHandlers(service *app.Service) *TransferHandlers {
	return &TransferHandlers{service: service}
}

// CreateTransferHandler handles POST /api/transactions/.
func (h *TransferHandlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTransferRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	tx, err := h.service.CreateTransfer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// GetParticipantTransfersHandler handles GET /api/transactions/{userID}/.
func (h *TransferHandlers) GetParticipantTransfersHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	transactions, err := h.service.GetParticipantTransfers(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

// GetTransferHandler handles GET /api/transaction/{transactionID}.
func (h *TransferHandlers) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	tx, err := h.service.GetTransfer(r.Context(), transactionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

// writeServiceError maps the orchestrator's error taxonomy onto HTTP statuses.
func (h *TransferHandlers) writeServiceError(w http.ResponseWriter, err error) {
	var (
		participantNotFound *app.ParticipantNotFoundError
		upstream            *app.UpstreamError
		persistence         *app.PersistenceError
	)

	switch {
	case errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &participantNotFound):
		h.writeError(w, http.StatusNotFound, participantNotFound.Error())
	case errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.As(err, &upstream):
		log.Printf("level=error component=api msg=\"transfer failed upstream\" step=%s compensated=%t err=%v", upstream.Step, upstream.Compensated, err)
		h.writeError(w, http.StatusBadGateway, upstream.Error())
	case errors.Is(err, accountclient.ErrUnavailable):
		log.Printf("level=error component=api msg=\"account service unavailable\" err=%v", err)
		h.writeError(w, http.StatusBadGateway, "Account service unavailable")
	case errors.As(err, &persistence):
		log.Printf("level=error component=api msg=\"ledger persistence failure\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to record transaction")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *TransferHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *TransferHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
