package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"ffbatch/batch"
	"ffbatch/config"
	"ffbatch/ffmpeg"
	"ffbatch/operation"
	"ffbatch/task"

	"github.com/gin-gonic/gin"
)

// Prober answers synchronous metadata probes without going through the queue.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

type Handler struct {
	taskManager *task.Manager
	prober      Prober
	ws          *ffmpeg.Workspace
	cfg         *config.Config
}

func NewHandler(tm *task.Manager, prober Prober, ws *ffmpeg.Workspace, cfg *config.Config) *Handler {
	return &Handler{
		taskManager: tm,
		prober:      prober,
		ws:          ws,
		cfg:         cfg,
	}
}

type BatchRequest struct {
	Operation operation.Descriptor `json:"operation" binding:"required"`
	Options   batch.Options        `json:"options"`
	Items     []*batch.Item        `json:"items"`
}

// handleCreateBatch validates and enqueues a batch for asynchronous
// processing.
func (h *Handler) handleCreateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Operation.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid operation: %v", err)})
		return
	}

	// Custom pass-through args are the one user-controlled argv surface;
	// screen them before accepting the task.
	if req.Operation.Kind == operation.KindCustom {
		if err := ffmpeg.SanitizeArgs(strings.Fields(req.Operation.Custom.Args)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid custom args: %v", err)})
			return
		}
	}

	if len(req.Items) == 0 && req.Operation.Kind != operation.KindConcatenate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one item is required"})
		return
	}

	t, err := h.taskManager.Submit(&batch.Batch{
		Operation: req.Operation,
		Options:   req.Options,
		Items:     req.Items,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": t.ID})
}

// handleListBatches lists all tasks.
func (h *Handler) handleListBatches(c *gin.Context) {
	tasks := h.taskManager.List()
	c.JSON(http.StatusOK, tasks)
}

// handleGetBatch retrieves the status (and, once completed, the result) of a
// single task.
func (h *Handler) handleGetBatch(c *gin.Context) {
	taskID := c.Param("taskId")
	t, found := h.taskManager.Get(taskID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// handleCancelBatch cancels a task.
func (h *Handler) handleCancelBatch(c *gin.Context) {
	taskID := c.Param("taskId")
	err := h.taskManager.Cancel(taskID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task cancellation requested"})
}

// handleItemFile streams one result item's binary output as a download.
func (h *Handler) handleItemFile(c *gin.Context) {
	taskID := c.Param("taskId")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	payload, err := h.taskManager.ResultPayload(taskID, index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.FileName))
	mime := payload.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Data(http.StatusOK, mime, payload.Data)
}

type ProbeRequest struct {
	Path   string         `json:"path,omitempty"`
	Binary *batch.Payload `json:"binary,omitempty"`
}

// handleProbe runs a synchronous metadata probe. Probes are read-only and
// cheap enough to bypass the task queue.
func (h *Handler) handleProbe(c *gin.Context) {
	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := req.Path
	if path == "" {
		if req.Binary == nil || len(req.Binary.Data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either path or binary is required"})
			return
		}
		ext := strings.TrimPrefix(filepath.Ext(req.Binary.FileName), ".")
		if ext == "" {
			ext = "bin"
		}
		tmp, err := h.ws.WriteTemp("probe", ext, req.Binary.Data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer tmp.Release()
		path = tmp.Path()
	}

	result, err := h.prober.Probe(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
