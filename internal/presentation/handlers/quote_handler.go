package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/application/services"
)

// QuoteHandler handles HTTP requests for quote endpoints
type QuoteHandler struct {
	service *services.PositionService
	logger  *zap.Logger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(service *services.PositionService, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the quote routes on a chi router
func (h *QuoteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/quote", h.GetQuote)
}

// GetQuote handles GET /api/v1/quote?token_in=USDT&token_out=USDC&amount=1000000
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenIn := r.URL.Query().Get("token_in")
	tokenOut := r.URL.Query().Get("token_out")
	amountStr := r.URL.Query().Get("amount")

	if tokenIn == "" || tokenOut == "" {
		h.respondError(w, http.StatusBadRequest, "token_in and token_out are required")
		return
	}

	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() < 0 {
		h.respondError(w, http.StatusBadRequest, "amount must be a non-negative integer in raw token units")
		return
	}

	response, err := h.service.GetQuote(ctx, tokenIn, tokenOut, amount)
	if err != nil {
		if errors.Is(err, services.ErrUnknownToken) {
			h.respondError(w, http.StatusNotFound, "Unknown token symbol")
			return
		}
		if errors.Is(err, services.ErrNoRoute) {
			h.respondError(w, http.StatusNotFound, "No route between the requested tokens")
			return
		}

		h.logger.Error("Failed to compute quote",
			zap.Error(err),
			zap.String("token_in", tokenIn),
			zap.String("token_out", tokenOut),
		)
		h.respondError(w, http.StatusBadGateway, "Failed to compute quote")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *QuoteHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *QuoteHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
