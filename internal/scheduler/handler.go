package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/dailygist/common"
	"github.com/joshu-sajeev/dailygist/internal/dto"
)

// Runner runs one scheduler pass.
type Runner interface {
	Run(ctx context.Context) (*dto.TriggerResponseDTO, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(r Runner) *Handler {
	return &Handler{runner: r}
}

// Trigger runs a pass on behalf of an external cron and reports its counts.
func (h *Handler) Trigger(c *gin.Context) {
	resp, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.Error(common.Errf(http.StatusRequestTimeout, "request canceled or timed out"))
			return
		}
		slog.Error("scheduler pass failed", "error", err)
		c.Error(common.Errf(http.StatusInternalServerError, "scheduler pass failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
