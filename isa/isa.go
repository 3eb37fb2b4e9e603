// Package isa enumerates the SIMD instruction-set targets the ISPC compiler
// can specialize for, along with the flag encodings for the other compiler
// option groups (math library, addressing width, CPU tuning, optimization
// switches).
package isa

import (
	"fmt"
	"strings"
)

// TargetISA identifies an instruction-set family and vector width. The zero
// value is Host, which lets the compiler pick the ISA of the machine the
// build runs on.
type TargetISA int

const (
	Host TargetISA = iota
	SSE2i32x4
	SSE2i32x8
	SSE4i32x4
	SSE4i32x8
	SSE4i16x8
	SSE4i8x16
	AVX1i32x4
	AVX1i32x8
	AVX1i32x16
	AVX1i64x4
	AVX2i32x8
	AVX2i32x16
	AVX2i64x4
	AVX512KNLi32x16
	AVX512SKXi32x16
	AVX512SKXi32x8
	Neoni8x16
	Neoni16x8
	Neoni32x4
	Neoni32x8
)

var targetNames = map[TargetISA]string{
	Host:            "host",
	SSE2i32x4:       "sse2-i32x4",
	SSE2i32x8:       "sse2-i32x8",
	SSE4i32x4:       "sse4-i32x4",
	SSE4i32x8:       "sse4-i32x8",
	SSE4i16x8:       "sse4-i16x8",
	SSE4i8x16:       "sse4-i8x16",
	AVX1i32x4:       "avx1-i32x4",
	AVX1i32x8:       "avx1-i32x8",
	AVX1i32x16:      "avx1-i32x16",
	AVX1i64x4:       "avx1-i64x4",
	AVX2i32x8:       "avx2-i32x8",
	AVX2i32x16:      "avx2-i32x16",
	AVX2i64x4:       "avx2-i64x4",
	AVX512KNLi32x16: "avx512knl-i32x16",
	AVX512SKXi32x16: "avx512skx-i32x16",
	AVX512SKXi32x8:  "avx512skx-i32x8",
	Neoni8x16:       "neon-i8x16",
	Neoni16x8:       "neon-i16x8",
	Neoni32x4:       "neon-i32x4",
	Neoni32x8:       "neon-i32x8",
}

// libSuffixes follow current ispc object naming, where the first AVX
// generation is spelled "avx". Historical releases wrote "avx1" and had
// separate "avx11" (AVX1.1) targets that no longer exist.
var libSuffixes = map[TargetISA]string{
	Host:            "host",
	SSE2i32x4:       "sse2",
	SSE2i32x8:       "sse2",
	SSE4i32x4:       "sse4",
	SSE4i32x8:       "sse4",
	SSE4i16x8:       "sse4",
	SSE4i8x16:       "sse4",
	AVX1i32x4:       "avx",
	AVX1i32x8:       "avx",
	AVX1i32x16:      "avx",
	AVX1i64x4:       "avx",
	AVX2i32x8:       "avx2",
	AVX2i32x16:      "avx2",
	AVX2i64x4:       "avx2",
	AVX512KNLi32x16: "avx512knl",
	AVX512SKXi32x16: "avx512skx",
	AVX512SKXi32x8:  "avx512skx",
	Neoni8x16:       "neon",
	Neoni16x8:       "neon",
	Neoni32x4:       "neon",
	Neoni32x8:       "neon",
}

// String returns the target name as passed to the compiler's --target flag.
func (t TargetISA) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}

	return fmt.Sprintf("unknown(%d)", int(t))
}

// LibSuffix returns the suffix the compiler appends to per-ISA object files
// when compiling for multiple targets at once, e.g. "avx2" in
// "kernel_ispc_avx2.o".
func (t TargetISA) LibSuffix() string {
	if s, ok := libSuffixes[t]; ok {
		return s
	}

	return "unknown"
}

// Parse parses a target name as spelled on the compiler command line, e.g.
// "avx2-i32x8".
func Parse(s string) (TargetISA, error) {
	for t, name := range targetNames {
		if name == s {
			return t, nil
		}
	}

	return Host, fmt.Errorf("unknown target ISA: %q", s)
}

// Dedup removes duplicate targets while preserving first-occurrence order.
func Dedup(targets []TargetISA) []TargetISA {
	seen := make(map[TargetISA]bool, len(targets))
	out := make([]TargetISA, 0, len(targets))

	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	return out
}

// TargetFlag builds the --target flag for one or more ISAs. The order of
// the list is preserved, so repeated builds produce identical command lines.
func TargetFlag(targets []TargetISA) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}

	return "--target=" + strings.Join(names, ",")
}

// MathLib selects the math backend used by compiled code.
type MathLib int

const (
	MathDefault MathLib = iota
	MathFast
	MathSVML
	MathSystem
)

func (m MathLib) Flag() string {
	switch m {
	case MathFast:
		return "--math-lib=fast"
	case MathSVML:
		return "--math-lib=svml"
	case MathSystem:
		return "--math-lib=system"
	default:
		return "--math-lib=default"
	}
}

// Addressing selects 32 or 64 bit addressing calculations. 32-bit is the
// compiler default even on 64-bit targets.
type Addressing int

const (
	AddressingNone Addressing = iota
	Addressing32
	Addressing64
)

func (a Addressing) Flag() string {
	switch a {
	case Addressing32:
		return "--addressing=32"
	case Addressing64:
		return "--addressing=64"
	default:
		return ""
	}
}

// CPU selects a specific CPU to tune for, overriding the compiler's default
// of targeting the host CPU.
type CPU int

const (
	CPUNone CPU = iota
	CPUGeneric
	CPUBonnell
	CPUCore2
	CPUPenryn
	CPUNehalem
	CPUPs4
	CPUSandyBridge
	CPUIvyBridge
	CPUHaswell
	CPUBroadwell
	CPUKnl
	CPUSkx
	CPUIcl
	CPUSilvermont
	CPUCortexA9
	CPUCortexA15
	CPUCortexA35
	CPUCortexA53
	CPUCortexA57
)

var cpuNames = map[CPU]string{
	CPUGeneric:     "generic",
	CPUBonnell:     "bonnell",
	CPUCore2:       "core2",
	CPUPenryn:      "penryn",
	CPUNehalem:     "nehalem",
	CPUPs4:         "ps4",
	CPUSandyBridge: "sandybridge",
	CPUIvyBridge:   "ivybridge",
	CPUHaswell:     "haswell",
	CPUBroadwell:   "broadwell",
	CPUKnl:         "knl",
	CPUSkx:         "skx",
	CPUIcl:         "icl",
	CPUSilvermont:  "silvermont",
	CPUCortexA9:    "cortex-a9",
	CPUCortexA15:   "cortex-a15",
	CPUCortexA35:   "cortex-a35",
	CPUCortexA53:   "cortex-a53",
	CPUCortexA57:   "cortex-a57",
}

func (c CPU) Flag() string {
	if name, ok := cpuNames[c]; ok {
		return "--cpu=" + name
	}

	return ""
}

// OptimizationOpt is an individual --opt= switch.
type OptimizationOpt int

const (
	DisableAssertions OptimizationOpt = iota
	DisableFMA
	DisableLoopUnroll
	FastMaskedVload
	FastMath
	ForceAlignedMemory
	DisableZmm
)

var optNames = map[OptimizationOpt]string{
	DisableAssertions:  "disable-assertions",
	DisableFMA:         "disable-fma",
	DisableLoopUnroll:  "disable-loop-unroll",
	FastMaskedVload:    "fast-masked-vload",
	FastMath:           "fast-math",
	ForceAlignedMemory: "force-aligned-memory",
	DisableZmm:         "disable-zmm",
}

func (o OptimizationOpt) Flag() string {
	if name, ok := optNames[o]; ok {
		return "--opt=" + name
	}

	return ""
}
