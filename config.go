package ispcb

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/ispc-build/ispcb/internal/compiler"
	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/isa"
)

// Environment variables consumed for tool defaults. Both can be overridden
// per build through the corresponding Config setters.
const (
	EnvCompiler = "ISPCB_COMPILER"
	EnvBindgen  = "ISPCB_BINDGEN"
)

// Config accumulates the parameters of one build invocation through chained
// setter calls, terminated by Compile. Setters validate eagerly; the first
// violation is remembered and reported by Compile before anything runs.
type Config struct {
	// CompilerPath is the ispc executable, resolved via PATH when relative.
	CompilerPath string

	// BindgenTool is the external binding-generator executable.
	BindgenTool string

	// SourceFiles are the inputs, in insertion order. The order carries
	// through to the generated bindings.
	SourceFiles []string

	// Targets is the requested ISA set, deduplicated, in insertion order.
	// Empty means the host's best ISA.
	Targets []isa.TargetISA

	// OptLevel is the optimization level, 0 through 3. Defaults to 2.
	OptLevel int

	// DebugSymbols requests debug info generation.
	DebugSymbols bool

	// BuildDir is where objects, the archive, headers, bindings and
	// dependency records are written.
	BuildDir string

	IncludePaths     []string
	Defines          []compiler.Define
	MathLibrary      isa.MathLib
	AddressingWidth  isa.Addressing
	CPUTarget        isa.CPU
	OptimizationOpts []isa.OptimizationOpt
	ForceAlign       int
	PIC              bool

	NoOmitFramePointer bool
	NoStdlib           bool
	NoCPP              bool
	Quiet              bool
	Werror             bool
	Woff               bool
	WnoPerf            bool
	Instrument         bool

	// ExtraFlags are passed to the compiler verbatim, after all derived
	// flags.
	ExtraFlags []string

	// Jobs bounds parallel compilation. Defaults to the CPU count.
	Jobs int

	Verbose bool

	goos string
	err  error
}

// New creates a Config with defaults. Tool paths come from the environment
// when set; everything else matches the compiler's own defaults.
func New() *Config {
	return &Config{
		CompilerPath: env.Str(EnvCompiler, "ispc"),
		BindgenTool:  env.Str(EnvBindgen, "bindgen"),
		OptLevel:     2,
		BuildDir:     "ispc-build",
		Jobs:         runtime.NumCPU(),
		goos:         runtime.GOOS,
	}
}

func (c *Config) fail(reason string) *Config {
	if c.err == nil {
		c.err = &errs.ConfigurationError{Reason: reason}
	}

	return c
}

// File adds one source file to the build.
func (c *Config) File(path string) *Config {
	if strings.TrimSpace(path) == "" {
		return c.fail("empty source file path")
	}

	c.SourceFiles = append(c.SourceFiles, path)

	return c
}

// Files adds several source files, preserving order.
func (c *Config) Files(paths ...string) *Config {
	for _, p := range paths {
		c.File(p)
	}

	return c
}

// TargetISA adds one target ISA. Duplicate entries are rejected.
func (c *Config) TargetISA(t isa.TargetISA) *Config {
	for _, existing := range c.Targets {
		if existing == t {
			return c.fail(fmt.Sprintf("duplicate target ISA %s", t))
		}
	}

	c.Targets = append(c.Targets, t)

	return c
}

// TargetISAs adds several target ISAs.
func (c *Config) TargetISAs(targets ...isa.TargetISA) *Config {
	for _, t := range targets {
		c.TargetISA(t)
	}

	return c
}

// Opt sets the optimization level (0-3).
func (c *Config) Opt(level int) *Config {
	if level < 0 || level > 3 {
		return c.fail(fmt.Sprintf("optimization level %d out of range 0-3", level))
	}

	c.OptLevel = level

	return c
}

// Debug toggles debug symbol generation.
func (c *Config) Debug(debug bool) *Config {
	c.DebugSymbols = debug

	return c
}

// OutDir overrides the default build directory.
func (c *Config) OutDir(dir string) *Config {
	if strings.TrimSpace(dir) == "" {
		return c.fail("empty output directory")
	}

	c.BuildDir = dir

	return c
}

// IncludePath adds a compiler include search path.
func (c *Config) IncludePath(path string) *Config {
	c.IncludePaths = append(c.IncludePaths, path)

	return c
}

// Define adds a preprocessor definition; pass "" for a bare -DKEY.
func (c *Config) Define(key, value string) *Config {
	if strings.TrimSpace(key) == "" {
		return c.fail("empty define key")
	}

	c.Defines = append(c.Defines, compiler.Define{Key: key, Value: value})

	return c
}

// MathLib selects the math backend.
func (c *Config) MathLib(m isa.MathLib) *Config {
	c.MathLibrary = m

	return c
}

// Addressing selects 32 or 64 bit addressing calculations.
func (c *Config) Addressing(a isa.Addressing) *Config {
	c.AddressingWidth = a

	return c
}

// CPU tunes generated code for a specific CPU.
func (c *Config) CPU(cpu isa.CPU) *Config {
	c.CPUTarget = cpu

	return c
}

// OptimizationOpt enables an individual optimization switch.
func (c *Config) OptimizationOpt(o isa.OptimizationOpt) *Config {
	for _, existing := range c.OptimizationOpts {
		if existing == o {
			return c
		}
	}

	c.OptimizationOpts = append(c.OptimizationOpts, o)

	return c
}

// ForceAlignment forces memory allocations to the given alignment.
func (c *Config) ForceAlignment(alignment int) *Config {
	if alignment <= 0 {
		return c.fail("force-alignment must be positive")
	}

	c.ForceAlign = alignment

	return c
}

// PositionIndependentCode requests PIC objects.
func (c *Config) PositionIndependentCode() *Config {
	c.PIC = true

	return c
}

// Flag passes a raw compiler flag through unchanged.
func (c *Config) Flag(flag string) *Config {
	c.ExtraFlags = append(c.ExtraFlags, flag)

	return c
}

// Parallelism bounds the number of concurrently running compiler processes.
func (c *Config) Parallelism(jobs int) *Config {
	if jobs < 1 {
		return c.fail("parallelism must be at least 1")
	}

	c.Jobs = jobs

	return c
}

// Compiler overrides the compiler executable.
func (c *Config) Compiler(path string) *Config {
	if strings.TrimSpace(path) == "" {
		return c.fail("empty compiler path")
	}

	c.CompilerPath = path

	return c
}

// Bindgen overrides the binding-generator executable.
func (c *Config) Bindgen(path string) *Config {
	if strings.TrimSpace(path) == "" {
		return c.fail("empty bindgen path")
	}

	c.BindgenTool = path

	return c
}

// Validate checks the accumulated configuration. It reports the first eager
// setter violation, then structural problems. Compile calls this before any
// process is spawned or any file is written.
func (c *Config) Validate() error {
	if c.err != nil {
		return c.err
	}

	if len(c.SourceFiles) == 0 {
		return &errs.ConfigurationError{Reason: "no source files given"}
	}

	stems := make(map[string]string, len(c.SourceFiles))
	for _, src := range c.SourceFiles {
		stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		if prev, ok := stems[stem]; ok {
			return &errs.ConfigurationError{
				Reason: fmt.Sprintf("source files %s and %s would produce colliding artifacts %s_ispc.*", prev, src, stem),
			}
		}

		stems[stem] = src
	}

	if len(c.Targets) > 1 {
		suffixes := make(map[string]isa.TargetISA, len(c.Targets))
		for _, t := range c.Targets {
			if t == isa.Host {
				return &errs.ConfigurationError{Reason: "host target cannot be combined with explicit ISAs"}
			}

			if prev, ok := suffixes[t.LibSuffix()]; ok {
				return &errs.ConfigurationError{
					Reason: fmt.Sprintf("targets %s and %s share the object suffix %q and cannot be combined", prev, t, t.LibSuffix()),
				}
			}

			suffixes[t.LibSuffix()] = t
		}
	}

	// MSVC folds all debug info into one PDB per directory, which corrupts
	// it when several files build in parallel into the same build dir.
	if c.DebugSymbols && len(c.SourceFiles) > 1 && c.goos == "windows" {
		return &errs.ConfigurationError{
			Reason: "debug symbols with more than one source file are not supported on windows",
		}
	}

	return nil
}

// resolvedTargets returns the ISA set the build will actually compile for.
func (c *Config) resolvedTargets() []isa.TargetISA {
	if len(c.Targets) == 0 {
		return []isa.TargetISA{isa.Detect()}
	}

	return isa.Dedup(c.Targets)
}

// options assembles the flag-relevant view of the configuration for the
// invoker.
func (c *Config) options(targets []isa.TargetISA) *compiler.Options {
	return &compiler.Options{
		Targets:            targets,
		OptLevel:           c.OptLevel,
		Debug:              c.DebugSymbols,
		PIC:                c.PIC,
		Defines:            c.Defines,
		MathLib:            c.MathLibrary,
		Addressing:         c.AddressingWidth,
		CPU:                c.CPUTarget,
		OptimizationOpts:   c.OptimizationOpts,
		ForceAlignment:     c.ForceAlign,
		IncludePaths:       c.IncludePaths,
		NoOmitFramePointer: c.NoOmitFramePointer,
		NoStdlib:           c.NoStdlib,
		NoCPP:              c.NoCPP,
		Quiet:              c.Quiet,
		Werror:             c.Werror,
		Woff:               c.Woff,
		WnoPerf:            c.WnoPerf,
		Instrument:         c.Instrument,
		ExtraFlags:         c.ExtraFlags,
	}
}
