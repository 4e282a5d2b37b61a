package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radityaw/treasury-agent/internal/application/services"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func isValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// PositionHandler handles HTTP requests for wallet position endpoints
type PositionHandler struct {
	service *services.PositionService
	logger  *zap.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(service *services.PositionService, logger *zap.Logger) *PositionHandler {
	return &PositionHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the position routes on a chi router
func (h *PositionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/wallets", func(r chi.Router) {
		r.Get("/{address}/positions", h.GetPositions)
	})
}

// GetPositions handles GET /api/v1/wallets/{address}/positions
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet address format")
		return
	}

	address = strings.ToLower(address)

	response, err := h.service.GetPositions(ctx, address)
	if err != nil {
		h.logger.Error("Failed to get positions",
			zap.Error(err),
			zap.String("address", address),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to get positions")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *PositionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *PositionHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
