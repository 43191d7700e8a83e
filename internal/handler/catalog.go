package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/gamestore-backend/internal/catalog"
)

type CreateGameRequest struct {
	Key             string          `json:"key" validate:"required"`
	Name            string          `json:"name" validate:"required"`
	Genre           string          `json:"genre"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent" validate:"gte=0,lte=100"`
}

type CatalogHandler struct {
	svc      catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/games", h.handleListGames)
	router.Get("/games/{key}", h.handleGetGame)
	router.Post("/games", h.handleCreateGame)
}

func (h *CatalogHandler) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.ListGames(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, games)
}

func (h *CatalogHandler) handleGetGame(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		respondWithProblem(w, r, http.StatusBadRequest, "game key is required")
		return
	}

	game, err := h.svc.GetGameByKey(r.Context(), key)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, game)
}

func (h *CatalogHandler) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
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

	game := &catalog.Game{
		Key:             req.Key,
		Name:            req.Name,
		Genre:           req.Genre,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
	}
	if err := h.svc.CreateGame(r.Context(), game); err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, game)
}
