package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/pkg/httpcontext"
)

// JobService is implemented by services.Dispatcher.
type JobService interface {
	ListJobs(ctx context.Context, userID string, status domain.JobStatus) ([]domain.ReminderJob, error)
}

type JobHandler struct {
	baseHandler
	jobs JobService
}

func NewJobHandler(jobs JobService, adapter *httpcontext.Adapter, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		baseHandler: newBaseHandler(adapter, logger),
		jobs:        jobs,
	}
}

// @Summary Inspect the caller's reminder jobs
// @Tags reminders
// @Router /api/v1/reminders/jobs [get]
func (h *JobHandler) List(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	jobs, err := h.jobs.ListJobs(stdCtx, userID, domain.JobStatus(ctx.QueryArgs().Peek("status")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if jobs == nil {
		jobs = []domain.ReminderJob{}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(jobs, map[string]int{"total": len(jobs)}))
}
