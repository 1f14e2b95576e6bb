// Package httpapi exposes the auxiliary HTTP surface alongside the
// WebSocket command protocol: a liveness probe and REST access to the
// preset store and configuration, for tooling that would rather poll
// than hold a socket open.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rgbcct/panelfx/internal/apperr"
	"github.com/rgbcct/panelfx/internal/config"
	"github.com/rgbcct/panelfx/internal/engine"
	"github.com/rgbcct/panelfx/internal/logger"
	"github.com/rgbcct/panelfx/internal/presets"
)

// Handler groups the collaborators the HTTP routes read from and write
// to.
type Handler struct {
	engine     *engine.Engine
	presets    *presets.Manager
	cfgManager *config.Manager
	log        logger.Logger
}

// NewRouter builds a gin.Engine with the routes wired to h's
// collaborators.
func NewRouter(eng *engine.Engine, pres *presets.Manager, cfgManager *config.Manager, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &Handler{engine: eng, presets: pres, cfgManager: cfgManager, log: log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/healthz", h.healthz)

	api := router.Group("/api")
	{
		api.GET("/presets", h.listPresets)
		api.POST("/presets", h.createPreset)
		api.PUT("/presets/:id", h.updatePreset)
		api.DELETE("/presets/:id", h.deletePreset)

		api.GET("/config", h.getConfig)
		api.PUT("/config", h.updateConfig)
	}

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"fps":           h.engine.FPS(),
		"currentEffect": h.engine.CurrentEffectName(),
		"panelCount":    h.engine.Grid().N(),
	})
}

func (h *Handler) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, h.presets.GetAll())
}

func (h *Handler) createPreset(c *gin.Context) {
	var req presets.Preset
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(apperr.New(apperr.InvalidCommand, "invalid preset body: %v", err)))
		return
	}
	created, err := h.presets.Create(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updatePreset(c *gin.Context) {
	id := c.Param("id")
	var req presets.Patch
	var body struct {
		Name   *string `json:"name"`
		Effect *string `json:"effect"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(apperr.New(apperr.InvalidCommand, "invalid patch body: %v", err)))
		return
	}
	req.Name = body.Name
	req.Effect = body.Effect

	updated, err := h.presets.Update(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deletePreset(c *gin.Context) {
	id := c.Param("id")
	if err := h.presets.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfgManager.Get())
}

func (h *Handler) updateConfig(c *gin.Context) {
	cfg := h.cfgManager.Get()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(apperr.New(apperr.InvalidCommand, "invalid config body: %v", err)))
		return
	}
	if err := h.cfgManager.Update(cfg); err != nil {
		respondError(c, apperr.Wrap(apperr.IO, err, "save configuration"))
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func errorBody(err error) gin.H {
	return gin.H{"code": apperr.CodeOf(err), "message": err.Error()}
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Protected:
		status = http.StatusForbidden
	case apperr.InvalidParam, apperr.InvalidCommand:
		status = http.StatusBadRequest
	case apperr.IO, apperr.Internal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, errorBody(err))
}
