// Package service manages task bundles on the local filesystem:
// manifest, statement and testcase archive for each task id.
package service

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"grader/internal/config"
	appErr "grader/pkg/errors"
	"grader/pkg/utils/logger"
)

const (
	manifestName  = "manifest.json"
	statementName = "desc.pdf"
	archiveName   = "testcases.zip"
	testcasesDir  = "testcases"
)

// TaskService stores task bundles under <root>/tasks/<id>/.
type TaskService struct {
	root string
}

// NewTaskService creates a task service rooted at the working directory.
func NewTaskService(root string) *TaskService {
	return &TaskService{root: root}
}

func (s *TaskService) taskDir(taskID string) string {
	return filepath.Join(s.root, "tasks", taskID)
}

// ValidTaskID rejects ids that would escape the tasks directory.
func ValidTaskID(taskID string) bool {
	if taskID == "" || taskID == "." || taskID == ".." {
		return false
	}
	return !strings.ContainsAny(taskID, "/\\")
}

// SaveManifest validates and stores the task manifest.
func (s *TaskService) SaveManifest(ctx context.Context, taskID string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "read manifest failed")
	}
	var manifest config.TaskManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return appErr.Wrapf(err, appErr.ManifestInvalid, "manifest is not valid JSON")
	}
	if manifest.TimeLimit <= 0 || manifest.MemoryLimit == 0 {
		return appErr.New(appErr.ManifestInvalid).WithMessage("manifest must set time_limit and memory_limit")
	}
	if err := os.MkdirAll(s.taskDir(taskID), 0o755); err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "create task dir failed")
	}
	if err := os.WriteFile(filepath.Join(s.taskDir(taskID), manifestName), data, 0o644); err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "write manifest failed")
	}
	logger.Info(ctx, "manifest stored", zap.String("task_id", taskID))
	return nil
}

// SaveStatement stores the problem statement PDF.
func (s *TaskService) SaveStatement(ctx context.Context, taskID string, r io.Reader) error {
	if err := os.MkdirAll(s.taskDir(taskID), 0o755); err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "create task dir failed")
	}
	dst, err := os.Create(filepath.Join(s.taskDir(taskID), statementName))
	if err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "create statement failed")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return appErr.Wrapf(err, appErr.TaskUploadFailed, "write statement failed")
	}
	logger.Info(ctx, "statement stored", zap.String("task_id", taskID))
	return nil
}

// SaveTestcases stores the uploaded zip and unpacks it into the
// testcases directory, replacing any previous one. The zip is kept
// on disk so it can be served back as-is.
func (s *TaskService) SaveTestcases(ctx context.Context, taskID string, r io.Reader) error {
	dir := s.taskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create task dir failed")
	}

	// Stream to a temp file first so a failed upload never clobbers
	// the existing archive.
	tmpPath := filepath.Join(dir, "upload-"+uuid.NewString()+".zip")
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create temp archive failed")
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "write temp archive failed")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "close temp archive failed")
	}

	if err := s.unpack(tmpPath, filepath.Join(dir, testcasesDir)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, archiveName)); err != nil {
		os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "store archive failed")
	}
	logger.Info(ctx, "testcases stored", zap.String("task_id", taskID))
	return nil
}

// unpack extracts the archive into dst, replacing it wholesale.
// Entries that would resolve outside dst are rejected.
func (s *TaskService) unpack(archivePath, dst string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "open archive failed")
	}
	defer reader.Close()

	if err := os.RemoveAll(dst); err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "clear testcases dir failed")
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create testcases dir failed")
	}

	for _, entry := range reader.File {
		name := filepath.Clean(entry.Name)
		if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return appErr.Newf(appErr.TestCaseUploadFailed, "archive entry %q escapes testcases dir", entry.Name)
		}
		target := filepath.Join(dst, name)
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create dir %s failed", name)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create dir for %s failed", name)
		}
		if err := extractFile(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "open archive entry %s failed", entry.Name)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "create %s failed", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return appErr.Wrapf(err, appErr.TestCaseUploadFailed, "extract %s failed", entry.Name)
	}
	return nil
}

// ArchivePath returns the stored testcases.zip path.
func (s *TaskService) ArchivePath(taskID string) (string, error) {
	return s.existingPath(taskID, archiveName, appErr.TestCaseNotFound)
}

// StatementPath returns the stored desc.pdf path.
func (s *TaskService) StatementPath(taskID string) (string, error) {
	return s.existingPath(taskID, statementName, appErr.TaskNotFound)
}

// Manifest loads the stored manifest for the task.
func (s *TaskService) Manifest(taskID string) (config.TaskManifest, error) {
	return config.LoadManifest(s.root, taskID)
}

// Delete removes the whole task bundle.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	dir := s.taskDir(taskID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return appErr.Newf(appErr.TaskNotFound, "task %s not found", taskID)
	}
	if err := os.RemoveAll(dir); err != nil {
		return appErr.Wrapf(err, appErr.TaskDeleteFailed, "delete task %s failed", taskID)
	}
	logger.Info(ctx, "task deleted", zap.String("task_id", taskID))
	return nil
}

// Exists reports whether the task has a stored manifest.
func (s *TaskService) Exists(taskID string) bool {
	_, err := os.Stat(filepath.Join(s.taskDir(taskID), manifestName))
	return err == nil
}

func (s *TaskService) existingPath(taskID, name string, missing appErr.ErrorCode) (string, error) {
	path := filepath.Join(s.taskDir(taskID), name)
	if _, err := os.Stat(path); err != nil {
		return "", appErr.Newf(missing, "task %s has no %s", taskID, name)
	}
	return path, nil
}
