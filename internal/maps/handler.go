package maps

import (
	"net/http"

	"casametrix_front/internal/autocomplete"
	"casametrix_front/platform/httpkit"
	"casametrix_front/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes the one-shot address lookup endpoint.
type Handler struct {
	provider     autocomplete.Provider
	defaultLimit int
	val          *validator.Validator
}

func NewHandler(provider autocomplete.Provider, defaultLimit int, val *validator.Validator) *Handler {
	return &Handler{provider: provider, defaultLimit: defaultLimit, val: val}
}

// LookupAddress handles GET /api/v1/maps/address-lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}
	req.Query = autocomplete.Normalize(req.Query)
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}

	results, err := h.provider.Suggest(c.Request.Context(), req.Query, limit)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "address lookup service unavailable", nil)
		return
	}

	httpkit.OK(c, LookupResponse{Query: req.Query, Suggestions: results})
}
