package maps

import (
	"casametrix_front/internal/autocomplete"
	apphttp "casametrix_front/internal/http"
	"casametrix_front/platform/validator"
)

// Module wires the maps address lookup HTTP routes.
type Module struct {
	handler *Handler
}

// NewModule serves lookups through provider, the same one views use.
func NewModule(provider autocomplete.Provider, defaultLimit int, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(provider, defaultLimit, val)}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/maps")
	group.GET("/address-lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
