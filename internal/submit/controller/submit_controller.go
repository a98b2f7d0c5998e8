// Package controller exposes the submission intake endpoint. A
// submission is validated against the language config and the stored
// task bundle, then published to the judging queue.
package controller

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grader/internal/config"
	"grader/internal/judge/model"
	taskservice "grader/internal/task/service"
	appErr "grader/pkg/errors"
	"grader/pkg/utils/logger"
	"grader/pkg/utils/response"
)

// Publisher is the queue slice the submit endpoint needs.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// SubmitController handles submission intake.
type SubmitController struct {
	cfg       *config.Config
	tasks     *taskservice.TaskService
	publisher Publisher
	queue     string
}

// NewSubmitController creates a new SubmitController.
func NewSubmitController(cfg *config.Config, tasks *taskservice.TaskService, publisher Publisher, queue string) *SubmitController {
	return &SubmitController{cfg: cfg, tasks: tasks, publisher: publisher, queue: queue}
}

// SubmitRequest defines the submission intake payload.
type SubmitRequest struct {
	TaskID       string `json:"task_id" binding:"required"`
	SubmissionID uint64 `json:"submission_id" binding:"required"`
	Code         string `json:"code" binding:"required"`
	Language     string `json:"language" binding:"required"`
}

// Healthchecker reports service liveness.
func (h *SubmitController) Healthchecker(c *gin.Context) {
	response.SuccessWithMessage(c, "Judge service is running", nil)
}

// Submit validates and enqueues a submission for judging.
func (h *SubmitController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if !taskservice.ValidTaskID(req.TaskID) {
		response.Error(c, appErr.ValidationError("task_id", "must not contain path separators"))
		return
	}
	if _, err := h.cfg.LanguageProfile(req.Language); err != nil {
		response.Error(c, err)
		return
	}
	if !h.tasks.Exists(req.TaskID) {
		response.Error(c, appErr.Newf(appErr.TaskNotFound, "task %s not found", req.TaskID))
		return
	}

	msg := model.SubmissionMessage{
		TaskID:       req.TaskID,
		SubmissionID: req.SubmissionID,
		Code:         req.Code,
		Language:     req.Language,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InternalServerError, "marshal submission failed"))
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), h.queue, body); err != nil {
		response.Error(c, err)
		return
	}

	logger.Info(c.Request.Context(), "submission enqueued",
		zap.Uint64("submission_id", req.SubmissionID),
		zap.String("task_id", req.TaskID),
		zap.String("language", req.Language),
	)
	response.Success(c, gin.H{"submission_id": req.SubmissionID})
}
