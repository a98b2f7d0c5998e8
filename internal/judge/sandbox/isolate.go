package sandbox

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"grader/internal/judge/model"
	appErr "grader/pkg/errors"
)

const (
	isolateBinary = "isolate"
	metaFileName  = "meta.txt"
	outputName    = "out.out"

	// checkerAccept is the exact byte sequence an accepting checker
	// prints on stdout.
	checkerAccept = "Correct\n100\n"

	// interpretedExt marks languages whose run template has no
	// {output} binary placeholder.
	interpretedExt = "py"

	wallTimeSlack  = 5.0
	extraTimeSlack = 1.0
)

// BoxSpec carries everything an IsolateBox needs for one submission.
type BoxSpec struct {
	BoxID         int
	Root          string // working directory holding tasks/ and checker/
	TaskID        string
	Code          string
	Ext           string
	TimeLimit     float64
	MemoryLimitKB uint64
	CompileTpl    string
	RunTpl        string
	Checker       string
}

// IsolateBox drives the isolate tool for one submission.
type IsolateBox struct {
	spec    BoxSpec
	boxPath string
}

// NewIsolateBox creates a box driver; the box itself is provisioned
// by Init.
func NewIsolateBox(spec BoxSpec) *IsolateBox {
	return &IsolateBox{spec: spec}
}

// BoxPath returns the box working directory. Empty before Init.
func (b *IsolateBox) BoxPath() string {
	return b.boxPath
}

func (b *IsolateBox) boxIDArg() string {
	return "--box-id=" + strconv.Itoa(b.spec.BoxID)
}

// Init runs `isolate --cg --box-id=K --init`, captures the printed
// box root, writes source.<ext> and copies every regular file from
// the task's testcase directory into the box.
func (b *IsolateBox) Init(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, isolateBinary, "--cg", b.boxIDArg(), "--init").Output()
	if err != nil {
		return appErr.Wrapf(err, appErr.SandboxInitFailed, "isolate init failed for box %d", b.spec.BoxID)
	}
	b.boxPath = filepath.Join(strings.TrimSpace(string(out)), "box")

	sourcePath := filepath.Join(b.boxPath, "source."+b.spec.Ext)
	if err := os.WriteFile(sourcePath, []byte(b.spec.Code), 0644); err != nil {
		return appErr.Wrapf(err, appErr.SandboxInitFailed, "write source file failed")
	}

	testcaseDir := filepath.Join(b.spec.Root, "tasks", b.spec.TaskID, "testcases")
	entries, err := os.ReadDir(testcaseDir)
	if err != nil {
		return appErr.Wrapf(err, appErr.SandboxInitFailed, "read testcase dir failed")
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(testcaseDir, entry.Name())
		dst := filepath.Join(b.boxPath, entry.Name())
		if err := copyFile(src, dst); err != nil {
			return appErr.Wrapf(err, appErr.SandboxInitFailed, "copy testcase %s failed", entry.Name())
		}
	}
	return nil
}

// Compile expands the language compile template and executes it as a
// subprocess outside the sandbox. The compile step trusts the toolchain.
func (b *IsolateBox) Compile(ctx context.Context) (model.IsolateResult, error) {
	argv, err := expandCompileTemplate(b.spec.CompileTpl, b.boxPath, b.spec.Ext)
	if err != nil {
		return model.IsolateResult{}, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return model.IsolateResult{Status: model.VerdictCE}, nil
		}
		return model.IsolateResult{}, appErr.Wrapf(err, appErr.JudgeSystemError, "spawn compiler failed")
	}
	return model.IsolateResult{Status: model.VerdictOK}, nil
}

// Run executes testcase testIndex inside the box and parses meta.txt.
func (b *IsolateBox) Run(ctx context.Context, testIndex uint64) (model.IsolateResult, error) {
	argv, err := expandRunTemplate(b.spec.RunTpl)
	if err != nil {
		return model.IsolateResult{}, err
	}

	args := []string{
		"--cg",
		b.boxIDArg(),
		"--time=" + formatSeconds(b.spec.TimeLimit),
		"--wall-time=" + formatSeconds(b.spec.TimeLimit+wallTimeSlack),
		"--extra-time=" + formatSeconds(b.spec.TimeLimit+extraTimeSlack),
		"--cg-mem=" + strconv.FormatUint(b.spec.MemoryLimitKB, 10),
		"--meta=" + filepath.Join(b.boxPath, metaFileName),
		"--stdin=" + strconv.FormatUint(testIndex, 10) + ".in",
		"--stdout=" + outputName,
		"--run",
		"--",
	}
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, isolateBinary, args...)
	if err := cmd.Run(); err != nil {
		// isolate exits non-zero whenever the judged program fails;
		// the meta file carries the real verdict.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return model.IsolateResult{}, appErr.Wrapf(err, appErr.SandboxRunFailed, "spawn isolate failed")
		}
	}

	return b.readMeta()
}

// Check runs the task checker as `checker <in> <out> <sol>` and
// accepts iff stdout is exactly "Correct\n100\n".
func (b *IsolateBox) Check(ctx context.Context, testIndex uint64) (bool, error) {
	index := strconv.FormatUint(testIndex, 10)
	checkerPath := filepath.Join(b.spec.Root, "checker", b.spec.Checker)
	cmd := exec.CommandContext(ctx, checkerPath,
		filepath.Join(b.boxPath, index+".in"),
		filepath.Join(b.boxPath, outputName),
		filepath.Join(b.boxPath, index+".sol"),
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false, appErr.Wrapf(err, appErr.CheckerFailed, "spawn checker failed")
		}
	}
	return string(out) == checkerAccept, nil
}

// Cleanup runs `isolate --cg --box-id=K --cleanup`.
func (b *IsolateBox) Cleanup(ctx context.Context) error {
	if err := exec.CommandContext(ctx, isolateBinary, "--cg", b.boxIDArg(), "--cleanup").Run(); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "isolate cleanup failed for box %d", b.spec.BoxID)
	}
	return nil
}

func (b *IsolateBox) readMeta() (model.IsolateResult, error) {
	data, err := os.ReadFile(filepath.Join(b.boxPath, metaFileName))
	if err != nil {
		return model.IsolateResult{}, appErr.Wrapf(err, appErr.MetaParseFailed, "read meta file failed")
	}
	return ParseMeta(string(data), b.spec.MemoryLimitKB)
}

// expandCompileTemplate substitutes {source_file} with the absolute
// source path and, for compiled languages, {output} with the binary
// path, then tokenizes the command.
func expandCompileTemplate(tpl, boxPath, ext string) ([]string, error) {
	expanded := strings.ReplaceAll(tpl, "{source_file}", filepath.Join(boxPath, "source."+ext))
	if ext != interpretedExt {
		expanded = strings.ReplaceAll(expanded, "{output}", filepath.Join(boxPath, "source"))
	}
	return tokenize(expanded)
}

// expandRunTemplate substitutes {source} with the in-box program name.
func expandRunTemplate(tpl string) ([]string, error) {
	return tokenize(strings.ReplaceAll(tpl, "{source}", "source"))
}

func tokenize(command string) ([]string, error) {
	fields, err := shlex.Split(command)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
