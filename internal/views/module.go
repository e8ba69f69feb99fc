// Package views exposes mounted search views to the browser: commands as
// JSON endpoints and state as a server-sent event stream.
package views

import (
	apphttp "casametrix_front/internal/http"
	"casametrix_front/internal/searchview"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/validator"
)

// Module wires the view routes.
type Module struct {
	handler *Handler
}

// NewModule creates the views module over manager.
func NewModule(manager *searchview.Manager, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(manager, val, log)}
}

func (m *Module) Name() string {
	return "views"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/views"))
}

var _ apphttp.Module = (*Module)(nil)
