// Package compiler invokes the external ISPC compiler: it plans the object,
// header and dependency-file layout for each source file, constructs the
// argument list, and maps process failures onto the build error taxonomy.
package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/ispc-build/ispcb/internal/errs"
)

// Commander is the minimal process interface, injectable for testing.
type Commander interface {
	Run() error
}

// Invoker spawns the compiler process. The exec functions are injection
// points so tests can substitute fakes without a real compiler install.
type Invoker struct {
	// Path is the compiler executable, either absolute or resolved via PATH.
	Path string

	execCommand func(name string, args ...string) Commander
	output      func(name string, args ...string) ([]byte, error)
}

// NewInvoker creates an invoker for the compiler at path.
func NewInvoker(path string) *Invoker {
	return &Invoker{
		Path: path,
		execCommand: func(name string, args ...string) Commander {
			return exec.Command(name, args...)
		},
		output: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
	}
}

var versionRe = regexp.MustCompile(`Intel\(r\) SPMD Program Compiler \(ispc\), (\d+\.\d+\.\d+)`)

// Version probes the compiler with --version and returns the semver string
// with a "v" prefix, suitable for golang.org/x/mod/semver comparison. This
// doubles as the existence check for the compiler before any artifact is
// written.
func (iv *Invoker) Version() (string, error) {
	out, err := iv.output(iv.Path, "--version")
	if err != nil {
		if isNotFound(err) {
			return "", &errs.ToolNotFoundError{Tool: "ispc", Path: iv.Path}
		}

		return "", fmt.Errorf("failed to query ispc version: %w", err)
	}

	m := versionRe.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("failed to parse ispc version from %q", bytes.TrimSpace(out))
	}

	return "v" + string(m[1]), nil
}

// Compile runs the compiler for one planned source file. A non-zero exit
// aborts with a CompilationError carrying the captured stderr verbatim; a
// missing executable is reported as ToolNotFound instead.
func (iv *Invoker) Compile(job *FileJob, args []string) error {
	var stdout, stderr bytes.Buffer

	c := iv.execCommand(iv.Path, args...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := c.Run()
	if err == nil {
		return nil
	}

	if isNotFound(err) {
		return &errs.ToolNotFoundError{Tool: "ispc", Path: iv.Path}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &errs.CompilationError{
			File:     job.Source,
			Targets:  job.TargetNames(),
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}

	return fmt.Errorf("failed to run ispc for %s: %w", job.Source, err)
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.Is(execErr.Err, exec.ErrNotFound)
	}

	return errors.Is(err, exec.ErrNotFound)
}
