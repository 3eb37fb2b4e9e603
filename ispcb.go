// Package ispcb drives the ISPC compiler from Go build tooling: it compiles
// a set of ISPC source files for one or more SIMD instruction-set targets,
// merges the per-ISA objects (and the compiler's runtime dispatch stub) into
// a single static library, and generates Go declarations for the library's
// exported symbols via an external binding tool.
//
// The typical use is a builder chain terminated by Compile:
//
//	lib, err := ispcb.New().
//		Files("kernels/mandelbrot.ispc").
//		TargetISAs(isa.SSE4i32x4, isa.AVX2i32x8).
//		Compile("mandelbrot")
//
// Builds are incremental: each source file carries a dependency record
// derived from the compiler's dependency emission, and unchanged files are
// never recompiled. For consumers that ship prebuilt libraries and must not
// depend on the compiler at all, the locate package resolves an existing
// archive by the host target triple instead.
package ispcb

// CompileLibrary compiles files into a static library named lib using the
// default configuration, mirroring the common single-call case.
func CompileLibrary(lib string, files ...string) (*Library, error) {
	return New().Files(files...).Compile(lib)
}
