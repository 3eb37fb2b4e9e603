package compiler

import (
	"fmt"
	"runtime"

	"github.com/ispc-build/ispcb/isa"
)

// Define is a preprocessor definition, -DKEY or -DKEY=VALUE.
type Define struct {
	Key   string
	Value string
}

// Options is the flag-relevant subset of the build configuration, resolved
// by the pipeline before invocation.
type Options struct {
	Targets            []isa.TargetISA
	OptLevel           int
	Debug              bool
	PIC                bool
	Defines            []Define
	MathLib            isa.MathLib
	Addressing         isa.Addressing
	CPU                isa.CPU
	OptimizationOpts   []isa.OptimizationOpt
	ForceAlignment     int
	IncludePaths       []string
	NoOmitFramePointer bool
	NoStdlib           bool
	NoCPP              bool
	Quiet              bool
	Werror             bool
	Woff               bool
	WnoPerf            bool
	Instrument         bool
	ExtraFlags         []string
}

// DefaultArgs builds the argument list shared by every source file in the
// build. The order is fixed so repeated builds produce identical command
// lines (and identical ArgsHash fingerprints in the dependency records).
func DefaultArgs(o *Options) []string {
	var args []string

	// Debug info is only usable at -O0; the compiler drops most of it under
	// optimization anyway.
	if o.Debug && o.OptLevel == 0 {
		args = append(args, "-g")
	}

	if flag := o.CPU.Flag(); flag != "" {
		args = append(args, flag)
		// ispc crashes on --cpu=generic together with -O0 (upstream issue
		// 1223), so the opt flag is omitted for that combination.
		if o.CPU != isa.CPUGeneric || o.OptLevel != 0 {
			args = append(args, fmt.Sprintf("-O%d", o.OptLevel))
		}
	} else {
		args = append(args, fmt.Sprintf("-O%d", o.OptLevel))
	}

	if o.PIC || runtime.GOOS != "windows" {
		args = append(args, "--pic")
	}

	switch runtime.GOARCH {
	case "amd64":
		args = append(args, "--arch=x86-64")
	case "386":
		args = append(args, "--arch=x86")
	case "arm64":
		args = append(args, "--arch=aarch64")
	case "arm":
		args = append(args, "--arch=arm")
	}

	for _, d := range o.Defines {
		if d.Value != "" {
			args = append(args, fmt.Sprintf("-D%s=%s", d.Key, d.Value))
		} else {
			args = append(args, "-D"+d.Key)
		}
	}

	args = append(args, o.MathLib.Flag())

	if flag := o.Addressing.Flag(); flag != "" {
		args = append(args, flag)
	}

	if o.ForceAlignment > 0 {
		args = append(args, fmt.Sprintf("--force-alignment=%d", o.ForceAlignment))
	}

	for _, opt := range o.OptimizationOpts {
		args = append(args, opt.Flag())
	}

	for _, p := range o.IncludePaths {
		args = append(args, "-I"+p)
	}

	if o.NoOmitFramePointer {
		args = append(args, "--no-omit-frame-pointer")
	}

	if o.NoStdlib {
		args = append(args, "--nostdlib")
	}

	if o.NoCPP {
		args = append(args, "--nocpp")
	}

	if o.Quiet {
		args = append(args, "--quiet")
	}

	if o.Werror {
		args = append(args, "--werror")
	}

	if o.Woff {
		args = append(args, "--woff")
	}

	if o.WnoPerf {
		args = append(args, "--wno-perf")
	}

	if o.Instrument {
		args = append(args, "--instrument")
	}

	if len(o.Targets) > 0 {
		args = append(args, isa.TargetFlag(o.Targets))
	}

	args = append(args, o.ExtraFlags...)

	return args
}

// JobArgs appends the per-file input and output arguments to the shared
// defaults: the source itself, the object, the exported header, and the
// dependency-emission file.
func JobArgs(defaults []string, job *FileJob) []string {
	args := make([]string, 0, len(defaults)+7)
	args = append(args, defaults...)
	args = append(args,
		job.Source,
		"-o", job.DispatchObject,
		"-h", job.Header,
		"-MMM", job.DepFile,
	)

	return args
}
