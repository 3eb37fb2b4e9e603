package ispcb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/ispc-build/ispcb/internal/archive"
	"github.com/ispc-build/ispcb/internal/bindgen"
	"github.com/ispc-build/ispcb/internal/cache"
	"github.com/ispc-build/ispcb/internal/compiler"
	"github.com/ispc-build/ispcb/internal/depend"
	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/internal/par"
	"github.com/ispc-build/ispcb/internal/utils"
)

// instrumentMinVersion is the oldest compiler whose --instrument output is
// C compatible; older ones generate a header the binding tool cannot parse.
const instrumentMinVersion = "v1.9.1"

// Library is the result of a successful build: the merged archive, the
// exported header, the generated bindings, and the directives a host linker
// needs to consume the archive.
type Library struct {
	Name           string
	Path           string
	Header         string
	Bindings       string
	LinkDirectives []string

	// Warnings lists declarations the binding bridge could not translate.
	Warnings []string
}

// Compile is the terminal operation on a Config. It expands the source ×
// target matrix into compile units, recompiles only the stale ones, merges
// the objects into one static library, and regenerates the bindings when
// the exported header changed. The library name must not carry a lib prefix
// or an extension.
func (c *Config) Compile(lib string) (*Library, error) {
	if lib == "" {
		return nil, &errs.ConfigurationError{Reason: "empty library name"}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// The version probe doubles as the compiler existence check, before
	// anything is written to disk.
	invoker := compiler.NewInvoker(c.CompilerPath)
	ver, err := invoker.Version()
	if err != nil {
		return nil, err
	}

	if c.Instrument && semver.Compare(ver, instrumentMinVersion) < 0 {
		return nil, &errs.ConfigurationError{
			Reason: fmt.Sprintf("instrumentation requires ispc %s or newer, found %s", instrumentMinVersion, ver),
		}
	}

	buildDir, err := filepath.Abs(c.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve build directory: %w", err)
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}

	db, err := cache.New(filepath.Join(buildDir, cache.DefaultCacheDir))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	targets := c.resolvedTargets()
	defaults := compiler.DefaultArgs(c.options(targets))

	// The compiler version participates in the fingerprint so an upgraded
	// compiler invalidates every cached object.
	argsHash := cache.HashArgs(append([]string{ver}, defaults...))

	jobs := make([]*compiler.FileJob, 0, len(c.SourceFiles))
	for _, src := range c.SourceFiles {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve source path %s: %w", src, err)
		}

		job, err := compiler.PlanFile(buildDir, abs, targets)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	stale := c.selectStale(jobs, buildDir, argsHash, db)

	var (
		warnMu   sync.Mutex
		warnings []string
	)

	err = par.Run(c.Jobs, stale, func(job *compiler.FileJob) error {
		if c.Verbose {
			fmt.Printf("compiling %s for %s\n", job.Source, job.TargetNames())
		}

		if err := invoker.Compile(job, compiler.JobArgs(defaults, job)); err != nil {
			return err
		}

		recPath := depend.RecordPath(buildDir, job.Stem)
		deps, derr := depend.ParseDepFile(job.DepFile, job.Source)
		if derr != nil {
			// No dependency information means no safe staleness decision,
			// so this file stays permanently stale rather than silently
			// cached. Any stale record from an earlier compiler must go.
			os.Remove(recPath)

			warnMu.Lock()
			warnings = append(warnings, fmt.Sprintf("dependency emission unavailable for %s, file will always recompile: %v", job.Source, derr))
			warnMu.Unlock()
		} else {
			rec := &depend.Record{
				Source:   job.Source,
				Deps:     deps,
				Objects:  job.Objects(),
				ArgsHash: argsHash,
				BuiltAt:  time.Now(),
			}
			if err := rec.Write(recPath); err != nil {
				return err
			}
		}

		return recordArtifacts(db, job)
	})
	if err != nil {
		return nil, err
	}

	var objects []string
	for _, job := range jobs {
		objects = append(objects, job.Objects()...)
	}

	libfile := lib + utils.HostTriple()
	archivePath, err := archive.New().Create(buildDir, libfile, objects)
	if err != nil {
		return nil, err
	}

	result := &Library{
		Name:           lib,
		Path:           archivePath,
		LinkDirectives: []string{"-L" + buildDir, "-l" + libfile},
		Warnings:       warnings,
	}

	if err := c.generateBindings(result, jobs, buildDir, lib, db); err != nil {
		return nil, err
	}

	return result, nil
}

// selectStale applies the dependency-record and artifact-validation checks
// to each planned file and returns those that must be recompiled.
func (c *Config) selectStale(jobs []*compiler.FileJob, buildDir, argsHash string, db *cache.Cache) []*compiler.FileJob {
	var stale []*compiler.FileJob

	for _, job := range jobs {
		rec, _ := depend.Load(depend.RecordPath(buildDir, job.Stem))

		fresh, reason := rec.Fresh(argsHash)
		if fresh {
			reason = verifyArtifacts(db, job)
			fresh = reason == ""
		}

		if fresh {
			continue
		}

		if c.Verbose {
			fmt.Printf("recompiling %s: %s\n", job.Source, reason)
		}

		stale = append(stale, job)
	}

	return stale
}

// verifyArtifacts checks every object of a fresh-looking job against its
// cached validation record. A truncated or externally modified object
// forces recompilation even when the dependency record is fresh.
func verifyArtifacts(db *cache.Cache, job *compiler.FileJob) string {
	for _, obj := range job.Objects() {
		art, err := db.Artifact(obj)
		if err != nil || art == nil {
			return fmt.Sprintf("no validation record for %s", obj)
		}

		if !art.Verify() {
			return fmt.Sprintf("object %s failed validation", obj)
		}
	}

	return ""
}

func recordArtifacts(db *cache.Cache, job *compiler.FileJob) error {
	multi := len(job.Units) > 1
	for _, obj := range job.Objects() {
		target := "dispatch"
		if !multi {
			target = job.Units[0].Target.String()
		} else {
			for _, u := range job.Units {
				if u.Object == obj {
					target = u.Target.String()
					break
				}
			}
		}

		art, err := cache.NewArtifact(obj, target)
		if err != nil {
			return fmt.Errorf("failed to record artifact %s: %w", obj, err)
		}

		if err := db.PutArtifact(art); err != nil {
			return err
		}
	}

	return nil
}

// generateBindings runs the binding bridge unless the exported header is
// byte-identical to the previous run.
func (c *Config) generateBindings(result *Library, jobs []*compiler.FileJob, buildDir, lib string, db *cache.Cache) error {
	headers := make([]string, len(jobs))
	for i, job := range jobs {
		headers[i] = job.Header
	}

	hdrPath, content, err := bindgen.WriteAmalgamatedHeader(buildDir, lib, headers)
	if err != nil {
		return err
	}

	result.Header = hdrPath
	result.Bindings = filepath.Join(buildDir, lib+".go")

	// The amalgamated header only names the per-file headers, so their
	// contents are folded into the hash as well.
	parts := []string{cache.HashBytes(content)}
	for _, h := range headers {
		fh, err := cache.HashFile(h)
		if err != nil {
			return &errs.BindingError{Header: h, Reason: "exported header missing"}
		}

		parts = append(parts, fh)
	}
	hash := cache.HashArgs(parts)

	prev, _ := db.Binding(lib)
	if prev != nil && prev.Hash == hash {
		if _, err := os.Stat(result.Bindings); err == nil {
			if c.Verbose {
				fmt.Printf("bindings for %s up to date\n", lib)
			}

			// The declarations that were stubbed out have not changed either,
			// so the recorded warnings still apply.
			result.Warnings = append(result.Warnings, prev.Warnings...)

			return nil
		}
	}

	bridge := bindgen.New(c.BindgenTool)
	rawOut := filepath.Join(buildDir, "_"+lib+"_bindings_raw.go")
	if err := bridge.Generate(hdrPath, rawOut, lib); err != nil {
		return err
	}

	raw, err := os.ReadFile(rawOut)
	if err != nil {
		return &errs.BindingError{Header: hdrPath, Reason: "binding tool produced no output"}
	}

	final, warns := bindgen.Postprocess(raw, lib)
	if err := os.WriteFile(result.Bindings, final, 0o644); err != nil {
		return fmt.Errorf("failed to write bindings module: %w", err)
	}

	result.Warnings = append(result.Warnings, warns...)

	return db.PutBinding(lib, &cache.Binding{Hash: hash, Warnings: warns})
}
