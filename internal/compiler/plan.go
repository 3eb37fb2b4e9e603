package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ispc-build/ispcb/isa"
)

// Unit is one (source file, target ISA) compile unit. The compiler handles
// multi-ISA fan-out internally, so units sharing a source are compiled by a
// single invocation, but each unit still owns a distinct object path.
type Unit struct {
	Source string
	Target isa.TargetISA
	Object string
}

// FileJob groups the units of one source file and fixes the on-disk layout
// of everything that invocation produces.
type FileJob struct {
	Source string
	Stem   string

	// DispatchObject is the object named by -o. For multi-target builds the
	// compiler writes the runtime CPU-dispatch stub here and emits one
	// suffixed object per ISA next to it; for single-target builds it is the
	// only object.
	DispatchObject string
	Header         string
	DepFile        string

	Units []Unit
}

// PlanFile derives the deterministic artifact layout for one source file.
// Object names follow the compiler's convention: <stem>_ispc.o for the
// primary object and <stem>_ispc_<isa>.o for per-ISA objects when more than
// one target is requested.
func PlanFile(buildDir, source string, targets []isa.TargetISA) (*FileJob, error) {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return nil, fmt.Errorf("source path %q has no file name", source)
	}

	name := stem + "_ispc"
	job := &FileJob{
		Source:         source,
		Stem:           stem,
		DispatchObject: filepath.Join(buildDir, name+".o"),
		Header:         filepath.Join(buildDir, name+".h"),
		DepFile:        filepath.Join(buildDir, name+".idep"),
	}

	for _, t := range targets {
		obj := job.DispatchObject
		if len(targets) > 1 {
			obj = filepath.Join(buildDir, name+"_"+t.LibSuffix()+".o")
		}

		job.Units = append(job.Units, Unit{Source: source, Target: t, Object: obj})
	}

	return job, nil
}

// Objects returns every object file this job produces, dispatch stub first,
// in target enumeration order.
func (j *FileJob) Objects() []string {
	objs := []string{j.DispatchObject}
	for _, u := range j.Units {
		if u.Object != j.DispatchObject {
			objs = append(objs, u.Object)
		}
	}

	return objs
}

// TargetNames returns the comma-joined target list for diagnostics.
func (j *FileJob) TargetNames() string {
	names := make([]string, len(j.Units))
	for i, u := range j.Units {
		names[i] = u.Target.String()
	}

	return strings.Join(names, ",")
}
