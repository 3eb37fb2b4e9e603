package isa

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Detect returns the widest TargetISA supported by the CPU the build is
// running on. It is used when a build requests no explicit targets, so the
// produced library matches the host without a runtime dispatch stub.
func Detect() TargetISA {
	switch runtime.GOARCH {
	case "amd64", "386":
		return detectX86()
	case "arm64", "arm":
		return Neoni32x4
	default:
		return Host
	}
}

func detectX86() TargetISA {
	switch {
	case cpu.X86.HasAVX512F && cpu.X86.HasAVX512VL && cpu.X86.HasAVX512BW:
		return AVX512SKXi32x16
	case cpu.X86.HasAVX512F:
		return AVX512KNLi32x16
	case cpu.X86.HasAVX2:
		return AVX2i32x8
	case cpu.X86.HasAVX:
		return AVX1i32x8
	case cpu.X86.HasSSE41:
		return SSE4i32x4
	case cpu.X86.HasSSE2:
		return SSE2i32x4
	default:
		return Host
	}
}
