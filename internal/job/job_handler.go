package job

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/dailygist/common"
	"github.com/joshu-sajeev/dailygist/internal/config"
	"github.com/joshu-sajeev/dailygist/internal/dto"
	"github.com/joshu-sajeev/dailygist/middleware"
)

type JobHandler struct {
	service      JobServiceInterface
	staleTimeout time.Duration
}

func NewJobHandler(s JobServiceInterface, staleTimeout time.Duration) *JobHandler {
	if staleTimeout <= 0 {
		staleTimeout = config.DefaultStaleTimeout
	}
	return &JobHandler{service: s, staleTimeout: staleTimeout}
}

var _ JobHandlerInterface = (*JobHandler)(nil)

// Claim hands the caller the oldest queued job, or {"available": false}.
func (h *JobHandler) Claim(c *gin.Context) {
	var req dto.ClaimRequestDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	claimed, err := h.service.Claim(c.Request.Context(), req.WorkerID)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if claimed == nil {
		c.JSON(http.StatusOK, dto.ClaimResponseDTO{Available: false})
		return
	}
	c.JSON(http.StatusOK, dto.ClaimResponseDTO{Available: true, Job: claimed})
}

// MarkReady handles a worker's success report.
func (h *JobHandler) MarkReady(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var body dto.MarkReadyDTO
	if !middleware.Bind(c, &body) {
		return
	}

	applied, err := h.service.MarkReady(c.Request.Context(), id, body.WorkerID, body.ResultRef)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AppliedDTO{Applied: applied})
}

// MarkFailed handles a worker's clean failure report.
func (h *JobHandler) MarkFailed(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var body dto.MarkFailedDTO
	if !middleware.Bind(c, &body) {
		return
	}

	applied, err := h.service.MarkFailed(c.Request.Context(), id, body.WorkerID, body.Error)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AppliedDTO{Applied: applied})
}

func (h *JobHandler) Progress(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var body dto.ProgressDTO
	if !middleware.Bind(c, &body) {
		return
	}

	applied, err := h.service.ReportProgress(c.Request.Context(), id, body.WorkerID, body.Stage)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.AppliedDTO{Applied: applied})
}

// Reconcile resets stale processing jobs. timeout_minutes overrides the
// configured window.
func (h *JobHandler) Reconcile(c *gin.Context) {
	timeout := h.staleTimeout
	if raw := c.Query("timeout_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			c.Error(common.Errf(http.StatusBadRequest, "timeout_minutes must be a positive integer"))
			return
		}
		timeout = time.Duration(minutes) * time.Minute
	}

	count, err := h.service.Reconcile(c.Request.Context(), timeout)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ReconcileResponseDTO{ResetCount: count})
}

// Get returns one job's status view.
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetJobByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListByOwner returns a tenant's recent jobs.
func (h *JobHandler) ListByOwner(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("owner_id"))
	if owner == "" {
		c.Error(common.Errf(http.StatusBadRequest, "owner_id is required"))
		return
	}

	jobs, err := h.service.ListOwnerJobs(c.Request.Context(), owner)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func jobID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > 64 {
		c.Error(common.Errf(http.StatusBadRequest, "invalid ID"))
		return "", false
	}
	return id, true
}
