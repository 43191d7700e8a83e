package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/gamestore-backend/internal/payment"
)

type PaymentRequest struct {
	Method string               `json:"method" validate:"required"`
	Card   *payment.CardDetails `json:"card,omitempty"`
}

// PaymentHandler drives the payment processor from the HTTP surface.
// The caller's identity comes from the identity claim, never from the body.
type PaymentHandler struct {
	processor *payment.Processor
	validate  *validator.Validate
}

func NewPaymentHandler(processor *payment.Processor) *PaymentHandler {
	return &PaymentHandler{
		processor: processor,
		validate:  validator.New(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders/payment", h.handlePay)
}

func (h *PaymentHandler) handlePay(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithProblem(w, r, http.StatusUnauthorized, "missing identity")
		return
	}

	var req PaymentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request payload: %v", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			respondWithProblem(w, r, http.StatusBadRequest, formatValidationErrors(validationErrors))
			return
		}
		respondWithProblem(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}

	outcome, err := h.processor.Pay(r.Context(), userID, req.Method, req.Card)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	switch out := outcome.(type) {
	case payment.BankOutcome:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.InvoiceDocument)
	default:
		respondWithJSON(w, http.StatusOK, outcome)
	}
}
