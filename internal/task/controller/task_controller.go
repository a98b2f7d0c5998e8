// Package controller exposes task bundle management over HTTP.
package controller

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"grader/internal/task/service"
	appErr "grader/pkg/errors"
	"grader/pkg/utils/response"
)

// TaskController handles task bundle HTTP endpoints.
type TaskController struct {
	taskService *service.TaskService
}

// NewTaskController creates a new TaskController.
func NewTaskController(taskService *service.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

// Upload handles multipart upload of any subset of the bundle parts:
// manifest (manifest.json), desc (desc.pdf) and testcases (zip).
func (h *TaskController) Upload(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}

	manifest := firstFile(form, "manifest")
	statement := firstFile(form, "desc")
	testcases := firstFile(form, "testcases")
	if manifest == nil && statement == nil && testcases == nil {
		response.BadRequest(c, "At least one of manifest, desc, testcases is required")
		return
	}

	ctx := c.Request.Context()
	if manifest != nil {
		if err := h.savePart(c, manifest, func(f multipart.File) error {
			return h.taskService.SaveManifest(ctx, taskID, f)
		}); err != nil {
			return
		}
	}
	if statement != nil {
		if err := h.savePart(c, statement, func(f multipart.File) error {
			return h.taskService.SaveStatement(ctx, taskID, f)
		}); err != nil {
			return
		}
	}
	if testcases != nil {
		if err := h.savePart(c, testcases, func(f multipart.File) error {
			return h.taskService.SaveTestcases(ctx, taskID, f)
		}); err != nil {
			return
		}
	}

	response.SuccessWithMessage(c, "Upload success", nil)
}

// Download serves the stored testcases archive.
func (h *TaskController) Download(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	path, err := h.taskService.ArchivePath(taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, "testcases.zip")
}

// Delete removes the task bundle.
func (h *TaskController) Delete(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	if err := h.taskService.Delete(c.Request.Context(), taskID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Delete success", nil)
}

// Statement serves the problem statement PDF.
func (h *TaskController) Statement(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	path, err := h.taskService.StatementPath(taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}

// Manifest serves the parsed task manifest.
func (h *TaskController) Manifest(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}
	manifest, err := h.taskService.Manifest(taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, manifest)
}

func (h *TaskController) savePart(c *gin.Context, header *multipart.FileHeader, save func(multipart.File) error) error {
	f, err := header.Open()
	if err != nil {
		wrapped := appErr.Wrapf(err, appErr.TaskUploadFailed, "open uploaded file failed")
		response.Error(c, wrapped)
		return wrapped
	}
	defer f.Close()
	if err := save(f); err != nil {
		response.Error(c, err)
		return err
	}
	return nil
}

func taskIDParam(c *gin.Context) (string, bool) {
	taskID := c.Param("id")
	if !service.ValidTaskID(taskID) {
		response.BadRequest(c, "Invalid task id")
		return "", false
	}
	return taskID, true
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
