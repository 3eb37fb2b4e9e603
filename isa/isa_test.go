package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetISA_String(t *testing.T) {
	tests := []struct {
		target TargetISA
		want   string
	}{
		{Host, "host"},
		{SSE2i32x4, "sse2-i32x4"},
		{SSE4i16x8, "sse4-i16x8"},
		{AVX1i64x4, "avx1-i64x4"},
		{AVX2i32x8, "avx2-i32x8"},
		{AVX512KNLi32x16, "avx512knl-i32x16"},
		{AVX512SKXi32x8, "avx512skx-i32x8"},
		{Neoni32x4, "neon-i32x4"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.String())
	}
}

func TestTargetISA_LibSuffix(t *testing.T) {
	tests := []struct {
		target TargetISA
		want   string
	}{
		{SSE2i32x8, "sse2"},
		{SSE4i8x16, "sse4"},
		{AVX1i32x16, "avx"},
		{AVX2i64x4, "avx2"},
		{AVX512SKXi32x16, "avx512skx"},
		{Neoni16x8, "neon"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.LibSuffix())
	}
}

func TestParse(t *testing.T) {
	target, err := Parse("avx2-i32x8")
	require.NoError(t, err)
	assert.Equal(t, AVX2i32x8, target)

	_, err = Parse("avx9-i32x8")
	assert.Error(t, err)
}

func TestParse_RoundTripsAllTargets(t *testing.T) {
	for target, name := range targetNames {
		parsed, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, target, parsed)
	}
}

func TestDedup(t *testing.T) {
	in := []TargetISA{AVX2i32x8, SSE2i32x4, AVX2i32x8, SSE2i32x4, SSE4i32x4}
	assert.Equal(t, []TargetISA{AVX2i32x8, SSE2i32x4, SSE4i32x4}, Dedup(in))
}

func TestTargetFlag(t *testing.T) {
	assert.Equal(t, "--target=sse2-i32x4", TargetFlag([]TargetISA{SSE2i32x4}))
	assert.Equal(t, "--target=sse2-i32x4,avx2-i32x8",
		TargetFlag([]TargetISA{SSE2i32x4, AVX2i32x8}))
}

func TestMathLib_Flag(t *testing.T) {
	assert.Equal(t, "--math-lib=default", MathDefault.Flag())
	assert.Equal(t, "--math-lib=fast", MathFast.Flag())
	assert.Equal(t, "--math-lib=svml", MathSVML.Flag())
	assert.Equal(t, "--math-lib=system", MathSystem.Flag())
}

func TestAddressing_Flag(t *testing.T) {
	assert.Empty(t, AddressingNone.Flag())
	assert.Equal(t, "--addressing=32", Addressing32.Flag())
	assert.Equal(t, "--addressing=64", Addressing64.Flag())
}

func TestCPU_Flag(t *testing.T) {
	assert.Empty(t, CPUNone.Flag())
	assert.Equal(t, "--cpu=generic", CPUGeneric.Flag())
	assert.Equal(t, "--cpu=cortex-a53", CPUCortexA53.Flag())
}

func TestOptimizationOpt_Flag(t *testing.T) {
	assert.Equal(t, "--opt=fast-math", FastMath.Flag())
	assert.Equal(t, "--opt=disable-zmm", DisableZmm.Flag())
}

func TestDetect_ReturnsKnownTarget(t *testing.T) {
	target := Detect()
	_, ok := targetNames[target]
	assert.True(t, ok, "Detect returned unknown target %d", int(target))
}
