package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/repository"
)

// Trigger starts a batch in the background. started is false when a batch is
// already running.
type Trigger interface {
	Trigger(ctx context.Context) (started bool)
}

type RunsHandler struct {
	log     *zap.Logger
	trigger Trigger
}

func NewRunsHandler(log *zap.Logger, trigger Trigger) *RunsHandler {
	return &RunsHandler{log: log, trigger: trigger}
}

func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := repository.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("Failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *RunsHandler) GetRun(c *gin.Context) {
	run, err := repository.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get run")
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunsHandler) ListUnits(c *gin.Context) {
	units, err := repository.ListUnitResults(c.Request.Context(), c.Param("id"), c.Query("status"))
	if err != nil {
		h.log.Error("Failed to list units", zap.Error(err), zap.String("runID", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list units"})
		return
	}
	c.JSON(http.StatusOK, units)
}

func (h *RunsHandler) GetUnitMetrics(c *gin.Context) {
	id, ok := unitID(c)
	if !ok {
		return
	}
	rows, err := repository.GetUnitMetrics(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get unit metrics", zap.Error(err), zap.Int("unitID", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get metrics"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// TriggerRun starts a batch unless one is already running.
func (h *RunsHandler) TriggerRun(c *gin.Context) {
	if !h.trigger.Trigger(context.WithoutCancel(c.Request.Context())) {
		c.JSON(http.StatusConflict, gin.H{"error": "A batch is already running"})
		return
	}
	h.log.Info("Batch triggered over HTTP", zap.String("clientIP", c.ClientIP()))
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *RunsHandler) respondError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	h.log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func unitID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unit id"})
		return 0, false
	}
	return id, true
}
