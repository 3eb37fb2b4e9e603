// Package bindgen bridges the compiler's exported C header to host-language
// declarations. The heavy lifting of parsing C is delegated to an external
// binding-generation tool; this package amalgamates the per-file headers
// into one input, invokes the tool, and post-processes its output into a
// single importable module.
package bindgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ispc-build/ispcb/internal/errs"
)

// Commander is the minimal process interface, injectable for testing.
type Commander interface {
	Run() error
}

// Bridge invokes the external binding-generation tool.
//
// The tool contract: it accepts the header path and an output path
// (`<tool> <header> -o <output> --package <pkg>`), emits host declarations
// in header declaration order, and is deterministic for identical input.
type Bridge struct {
	// Tool is the binding-generator executable.
	Tool string

	execCommand func(name string, args ...string) Commander
}

// New creates a bridge using the given tool executable.
func New(tool string) *Bridge {
	return &Bridge{
		Tool: tool,
		execCommand: func(name string, args ...string) Commander {
			return exec.Command(name, args...)
		},
	}
}

// WriteAmalgamatedHeader writes a single header including every per-file
// header the compiler emitted, so the binding tool sees one translation
// unit. Returns the header path and its content.
func WriteAmalgamatedHeader(buildDir, lib string, headers []string) (string, []byte, error) {
	var buf bytes.Buffer
	buf.WriteString("#include <stdint.h>\n")
	buf.WriteString("#include <stdbool.h>\n")
	for _, h := range headers {
		fmt.Fprintf(&buf, "#include %q\n", h)
	}

	path := filepath.Join(buildDir, fmt.Sprintf("_%s_ispc_bindgen_header.h", lib))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("failed to write bindgen header: %w", err)
	}

	return path, buf.Bytes(), nil
}

// Generate runs the binding tool against header, writing raw declarations
// to rawOut. Tool failures are fatal; a missing tool is reported distinctly
// so the user knows to install it rather than fix their source.
func (b *Bridge) Generate(header, rawOut, pkg string) error {
	var stderr bytes.Buffer

	c := b.execCommand(b.Tool, header, "-o", rawOut, "--package", pkg)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stderr = &stderr
	}

	if err := c.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return &errs.ToolNotFoundError{Tool: b.Tool}
		}

		return &errs.BindingError{Header: header, Reason: err.Error(), Stderr: stderr.String()}
	}

	return nil
}
