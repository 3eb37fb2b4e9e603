// Package errs defines the error taxonomy for the build pipeline.
//
// Every fatal condition maps to exactly one of these types so callers can
// distinguish remediation paths with errors.As: a missing tool needs an
// install, a compile failure needs a source fix, a missing prebuilt archive
// needs a distribution fix.
package errs

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid or contradictory build configuration.
// It is always returned before any external process is spawned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid build configuration: %s", e.Reason)
}

// ToolNotFoundError reports that a required external executable could not be
// found on the search path.
type ToolNotFoundError struct {
	Tool string
	Path string
}

func (e *ToolNotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s not found at %q, is it installed and on your PATH?", e.Tool, e.Path)
	}

	return fmt.Sprintf("%s not found, is it installed and on your PATH?", e.Tool)
}

// CompilationError reports a non-zero exit from the compiler for one source
// file. Stderr is carried verbatim.
type CompilationError struct {
	File     string
	Targets  string
	ExitCode int
	Stderr   string
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("compilation of %s failed (exit code %d)", e.File, e.ExitCode)
	if e.Targets != "" {
		msg = fmt.Sprintf("compilation of %s for %s failed (exit code %d)", e.File, e.Targets, e.ExitCode)
	}

	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ":\n" + s
	}

	return msg
}

// LinkError reports that the archiver could not combine the objects into a
// library.
type LinkError struct {
	Lib    string
	Reason string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link library %s: %s", e.Lib, e.Reason)
}

// BindingError reports a failure of the external binding-generation tool.
// Unsupported foreign constructs are not errors, they are surfaced as
// warnings on the generated module instead.
type BindingError struct {
	Header string
	Reason string
	Stderr string
}

func (e *BindingError) Error() string {
	msg := fmt.Sprintf("binding generation for %s failed: %s", e.Header, e.Reason)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ":\n" + s
	}

	return msg
}

// ArtifactNotFoundError reports that no prebuilt library matching the host
// triple was found on the search path.
type ArtifactNotFoundError struct {
	Lib      string
	Filename string
	Searched []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no prebuilt artifact %s for library %s in search path [%s]",
		e.Filename, e.Lib, strings.Join(e.Searched, ", "))
}
