package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/catalog"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
	"github.com/vasiliy-maslov/gamestore-backend/internal/payment"
)

// ProblemDocument is the stable failure shape every endpoint returns.
type ProblemDocument struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Internal Server Error","status":500,"detail":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	respondWithJSON(w, status, ProblemDocument{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// respondWithError maps a typed error onto the problem-document taxonomy.
// Unclassified errors surface as a generic 500 with no internal detail.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatusCode(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Unclassified internal error")
		if !errors.Is(err, payment.ErrGatewayFailure) {
			detail = "internal server error"
		}
	}
	respondWithProblem(w, r, status, detail)
}

func mapErrorToStatusCode(err error) int {
	var vErr *payment.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, payment.ErrUnsupportedMethod):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, catalog.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	detail := "validation failed on fields:"
	for i, fe := range errs {
		if i > 0 {
			detail += ","
		}
		detail += " " + fe.Field() + " (" + fe.Tag() + ")"
	}
	return detail
}
