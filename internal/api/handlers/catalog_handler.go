package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pakkapols/techfinder/internal/application/services"
	"github.com/pakkapols/techfinder/internal/domain/entities"
	apperrors "github.com/pakkapols/techfinder/pkg/errors"
)

// CatalogHandler handles catalog insight and discovery requests.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetInsights handles GET /api/products/insights.
func (h *CatalogHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	query := entities.StructuredQuery{InStockOnly: true}

	if category := r.URL.Query().Get("category"); category != "" {
		query.Categories = []string{category}
	}
	if maxPrice := r.URL.Query().Get("max_price"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil && v > 0 {
			query.MaxPrice = &v
		}
	}

	stats, err := h.catalog.Insights(r.Context(), query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute catalog insights")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetTrending handles GET /api/products/trending.
func (h *CatalogHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	products, err := h.catalog.Trending(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to fetch trending products")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// GetRecommendations handles GET /api/products/{id}/recommendations.
func (h *CatalogHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	if productID == "" {
		respondWithError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	products, err := h.catalog.Recommendations(r.Context(), productID, limit)
	if err != nil {
		if apperrors.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to fetch recommendations")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
