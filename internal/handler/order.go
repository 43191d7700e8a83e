package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

type AddToCartRequest struct {
	GameKey string `json:"game_key" validate:"required"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// OrderHandler exposes the cart and order lifecycle endpoints.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/items", h.handleAddToCart)
	router.Delete("/cart/items/{key}", h.handleRemoveFromCart)
	router.Get("/orders/history", h.handleOrderHistory)
	router.Get("/orders/closed", h.handleClosedOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/checkout", h.handleCheckout)
	router.Post("/orders/{id}/complete", h.handleComplete)
	router.Post("/orders/{id}/cancel", h.handleCancel)
	router.Post("/orders/{id}/ship", h.handleShip)
	router.Put("/orders/{id}/lines/{productID}", h.handleUpdateLineQuantity)
	router.Delete("/orders/{id}/lines/{productID}", h.handleDeleteLine)
}

func (h *OrderHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithProblem(w, r, http.StatusUnauthorized, "missing identity")
		return
	}

	var req AddToCartRequest
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

	ord, err := h.svc.AddGameToOrder(r.Context(), userID, req.GameKey)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}

func (h *OrderHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithProblem(w, r, http.StatusUnauthorized, "missing identity")
		return
	}

	ord, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}

func (h *OrderHandler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithProblem(w, r, http.StatusUnauthorized, "missing identity")
		return
	}

	key := chi.URLParam(r, "key")
	if key == "" {
		respondWithProblem(w, r, http.StatusBadRequest, "game key is required")
		return
	}

	if err := h.svc.RemoveFromCart(r.Context(), userID, key); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithProblem(w, r, http.StatusUnauthorized, "missing identity")
		return
	}

	orders, err := h.svc.GetOrderHistory(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleClosedOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.GetPaidAndCancelledOrders(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ord, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.CloseOrder)
}

func (h *OrderHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.CompleteOrder)
}

func (h *OrderHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.CancelOrder)
}

func (h *OrderHandler) handleShip(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.ShipOrder)
}

func (h *OrderHandler) handleTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, orderID uuid.UUID) error) {
	orderID, err := orderIDParam(r)
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := transition(r.Context(), orderID); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleUpdateLineQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := uuid.FromString(chi.URLParam(r, "productID"))
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, "product id must be a valid UUID")
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request payload: %v", err))
		return
	}

	if err := h.svc.UpdateLineQuantity(r.Context(), orderID, productID, req.Quantity); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := uuid.FromString(chi.URLParam(r, "productID"))
	if err != nil {
		respondWithProblem(w, r, http.StatusBadRequest, "product id must be a valid UUID")
		return
	}

	if err := h.svc.DeleteOrderLine(r.Context(), orderID, productID); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("order id must be a valid UUID")
	}
	return orderID, nil
}
