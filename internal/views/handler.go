package views

import (
	"net/http"
	"strconv"

	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/searchview"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/httpkit"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler exposes mounted views over HTTP.
type Handler struct {
	manager *searchview.Manager
	val     *validator.Validator
	log     *logger.Logger
}

func NewHandler(manager *searchview.Manager, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{manager: manager, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Mount)
	rg.GET("/:id", h.Snapshot)
	rg.DELETE("/:id", h.Unmount)
	rg.GET("/:id/events", h.Events)
	rg.PUT("/:id/query", h.SetQuery)
	rg.POST("/:id/select", h.Select)
	rg.POST("/:id/locate", h.Locate)
	rg.POST("/:id/search", h.Search)
	rg.POST("/:id/quota/reset", h.ResetQuota)
	rg.PUT("/:id/map", h.Attach)
	rg.DELETE("/:id/toasts/:toastId", h.DismissToast)
}

func (h *Handler) Mount(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	var req MountRequest
	if !h.bindOptional(c, &req) {
		return
	}

	v, err := h.manager.Mount(c.Request.Context(), searchview.MountRequest{
		ID:        req.ID,
		BrowserID: browserID,
		ClientIP:  c.ClientIP(),
		Container: req.Container,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	snap, err := v.Snapshot()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, MountResponse{ViewID: v.ID(), Snapshot: snap})
}

func (h *Handler) Snapshot(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	snap, err := v.Snapshot()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, snap)
}

func (h *Handler) Unmount(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.manager.Unmount(c.Param("id"), browserID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetQuery(c *gin.Context) {
	var req QueryRequest
	if !h.bind(c, &req) {
		return
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return true, v.SetQuery(req.Query)
	})
}

func (h *Handler) Select(c *gin.Context) {
	var req SelectRequest
	if !h.bind(c, &req) {
		return
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return true, v.Select(*req.Index)
	})
}

func (h *Handler) Locate(c *gin.Context) {
	var req LocateRequest
	if !h.bindOptional(c, &req) {
		return
	}
	var report *searchview.Report
	switch {
	case req.Error != "":
		report = &searchview.Report{Reason: geolocation.Reason(req.Error)}
	case req.Latitude != nil && req.Longitude != nil:
		report = &searchview.Report{Position: &geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}}
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return v.Locate(report)
	})
}

func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if !h.bind(c, &req) {
		return
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return v.Search(req.Query)
	})
}

func (h *Handler) ResetQuota(c *gin.Context) {
	h.command(c, func(v *searchview.View) (bool, error) {
		return true, v.ResetQuota()
	})
}

func (h *Handler) Attach(c *gin.Context) {
	var req AttachRequest
	if !h.bind(c, &req) {
		return
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return true, v.Attach(req.Container)
	})
}

func (h *Handler) DismissToast(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("toastId"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid toast id", nil)
		return
	}
	h.command(c, func(v *searchview.View) (bool, error) {
		return true, v.DismissToast(id)
	})
}

// command runs fn against the addressed view and answers with the
// resulting snapshot.
func (h *Handler) command(c *gin.Context, fn func(v *searchview.View) (bool, error)) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	accepted, err := fn(v)
	if httpkit.HandleError(c, err) {
		return
	}
	snap, err := v.Snapshot()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, CommandResponse{Accepted: accepted, Snapshot: snap})
}

func (h *Handler) view(c *gin.Context) (*searchview.View, bool) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return nil, false
	}
	v, err := h.manager.Get(c.Param("id"), browserID)
	if httpkit.HandleError(c, err) {
		return nil, false
	}
	return v, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

// bindOptional accepts an empty body as the zero request.
func (h *Handler) bindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return h.validate(c, req)
	}
	return h.bind(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return false
	}
	return true
}
