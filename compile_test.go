package ispcb

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ispc-build/ispcb/internal/errs"
	"github.com/ispc-build/ispcb/isa"
	"github.com/ispc-build/ispcb/internal/utils"
)

// fakeIspcScript stands in for the real compiler. It answers the version
// probe, records every compile invocation in the log file, derives the
// exported header from the source contents, and produces the dispatch
// object plus one suffixed object per ISA for multi-target invocations.
// A sidecar file <source>.deps, when present, supplies extra dependency
// lines for the -MMM output.
const fakeIspcScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "Intel(r) SPMD Program Compiler (ispc), ${FAKE_ISPC_VERSION:-1.12.0} (build commit fake)"
	exit 0
fi
if [ -n "$FAKE_ISPC_FAIL" ]; then
	echo "fake-error: $FAKE_ISPC_FAIL" >&2
	exit 1
fi
src=; obj=; hdr=; dep=; targets=
while [ $# -gt 0 ]; do
	case "$1" in
	-o) obj=$2; shift 2 ;;
	-h) hdr=$2; shift 2 ;;
	-MMM) dep=$2; shift 2 ;;
	--target=*) targets=${1#--target=}; shift ;;
	-*) shift ;;
	*) src=$1; shift ;;
	esac
done
echo "$src" >> "$FAKE_ISPC_LOG"
cp "$src" "$hdr"
echo dispatch > "$obj"
echo "$src" > "$dep"
if [ -f "$src.deps" ]; then
	cat "$src.deps" >> "$dep"
fi
case "$targets" in
*,*)
	base=${obj%.o}
	IFS=,
	for t in $targets; do
		echo "$t" > "${base}_${t%%-*}.o"
	done
	;;
esac
exit 0
`

// fakeArScript mimics ar crsD by concatenating the members.
const fakeArScript = `#!/bin/sh
shift
out=$1
shift
: > "$out"
for o in "$@"; do
	cat "$o" >> "$out"
done
exit 0
`

// fakeBindgenScript emits one declaration per run so regeneration is
// observable through the log file.
const fakeBindgenScript = `#!/bin/sh
hdr=$1
out=$3
pkg=$5
echo "$hdr" >> "$FAKE_BINDGEN_LOG"
{
	echo "package $pkg"
	echo ""
	echo "func Add(a int32_t, b int32_t) int32_t"
	echo "func Launch(h ISPCLaunch)"
} > "$out"
exit 0
`

type fakeTools struct {
	ispc       string
	bindgen    string
	ispcLog    string
	bindgenLog string
}

func installFakeTools(t *testing.T) *fakeTools {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	bin := t.TempDir()
	tools := &fakeTools{
		ispc:       filepath.Join(bin, "ispc"),
		bindgen:    filepath.Join(bin, "bindgen"),
		ispcLog:    filepath.Join(bin, "ispc.log"),
		bindgenLog: filepath.Join(bin, "bindgen.log"),
	}

	writeScript(t, tools.ispc, fakeIspcScript)
	writeScript(t, tools.bindgen, fakeBindgenScript)
	writeScript(t, filepath.Join(bin, "ar"), fakeArScript)

	// The archiver resolves ar through PATH.
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FAKE_ISPC_LOG", tools.ispcLog)
	t.Setenv("FAKE_BINDGEN_LOG", tools.bindgenLog)

	return tools
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func logLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}

	return lines
}

func testConfig(t *testing.T, tools *fakeTools) (*Config, string) {
	t.Helper()

	buildDir := filepath.Join(t.TempDir(), "build")
	cfg := New().
		Compiler(tools.ispc).
		Bindgen(tools.bindgen).
		OutDir(buildDir).
		Parallelism(1)

	return cfg, buildDir
}

func TestCompile_FullPipeline(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "simple.ispc", "export void simple(uniform float vout[]);\n")

	cfg, buildDir := testConfig(t, tools)
	lib, err := cfg.
		File(src).
		TargetISAs(isa.SSE2i32x4, isa.AVX2i32x8).
		Compile("kernels")
	require.NoError(t, err)

	assert.Equal(t, "kernels", lib.Name)
	assert.FileExists(t, lib.Path)
	assert.Equal(t, filepath.Join(buildDir, utils.LibFilename("kernels"+utils.HostTriple())), lib.Path)

	// One dispatch object plus one object per ISA.
	assert.FileExists(t, filepath.Join(buildDir, "simple_ispc.o"))
	assert.FileExists(t, filepath.Join(buildDir, "simple_ispc_sse2.o"))
	assert.FileExists(t, filepath.Join(buildDir, "simple_ispc_avx2.o"))
	assert.FileExists(t, filepath.Join(buildDir, "simple_ispc.h"))

	require.Len(t, logLines(t, tools.ispcLog), 1, "one invocation covers all targets of a file")

	assert.Equal(t, []string{"-L" + buildDir, "-lkernels" + utils.HostTriple()}, lib.LinkDirectives)

	bindings, err := os.ReadFile(lib.Bindings)
	require.NoError(t, err)
	assert.Contains(t, string(bindings), "package kernels")
	assert.Contains(t, string(bindings), "DO NOT EDIT")
	assert.Contains(t, string(bindings), "func Add(a int32, b int32) int32", "fixed-width C types are rewritten")
	assert.Contains(t, string(bindings), "// unsupported (foreign task primitive)")
	require.Len(t, lib.Warnings, 1)
	assert.Contains(t, lib.Warnings[0], "ISPCLaunch")
}

func TestCompile_SecondRunIsIdempotent(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")

	cfg, _ := testConfig(t, tools)
	cfg.File(src).TargetISA(isa.AVX2i32x8)

	first, err := cfg.Compile("noise")
	require.NoError(t, err)
	require.Len(t, logLines(t, tools.ispcLog), 1)
	require.Len(t, logLines(t, tools.bindgenLog), 1)
	require.Len(t, first.Warnings, 1)

	lib, err := cfg.Compile("noise")
	require.NoError(t, err)
	assert.FileExists(t, lib.Path)
	assert.Len(t, logLines(t, tools.ispcLog), 1, "unchanged inputs must not recompile")
	assert.Len(t, logLines(t, tools.bindgenLog), 1, "unchanged header must not regenerate bindings")

	// Skipping regeneration must not drop the warnings recorded with it.
	require.Len(t, lib.Warnings, 1)
	assert.Contains(t, lib.Warnings[0], "ISPCLaunch")
}

func TestCompile_SourceChangeRecompilesAndRegeneratesBindings(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")

	cfg, _ := testConfig(t, tools)
	cfg.File(src).TargetISA(isa.AVX2i32x8)

	_, err := cfg.Compile("noise")
	require.NoError(t, err)

	writeSource(t, srcDir, "noise.ispc", "export void noise(uniform int seed);\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))

	_, err = cfg.Compile("noise")
	require.NoError(t, err)
	assert.Len(t, logLines(t, tools.ispcLog), 2)
	assert.Len(t, logLines(t, tools.bindgenLog), 2, "changed header regenerates bindings")
}

func TestCompile_HeaderChangeInvalidatesOnlyIncluders(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	a := writeSource(t, srcDir, "a.ispc", "export void a();\n")
	b := writeSource(t, srcDir, "b.ispc", "export void b();\n")
	shared := writeSource(t, srcDir, "shared.isph", "struct Vec { float x; };\n")

	// Only a.ispc includes the shared header.
	writeSource(t, srcDir, "a.ispc.deps", shared+"\n")

	cfg, _ := testConfig(t, tools)
	cfg.Files(a, b).TargetISA(isa.AVX2i32x8)

	_, err := cfg.Compile("pair")
	require.NoError(t, err)
	require.Len(t, logLines(t, tools.ispcLog), 2)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(shared, future, future))

	_, err = cfg.Compile("pair")
	require.NoError(t, err)

	lines := logLines(t, tools.ispcLog)
	require.Len(t, lines, 3, "only the includer of the shared header recompiles")
	assert.Equal(t, a, lines[2])
}

func TestCompile_DeletedBindingsAreRebuiltWithoutRecompiling(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")

	cfg, _ := testConfig(t, tools)
	cfg.File(src).TargetISA(isa.AVX2i32x8)

	lib, err := cfg.Compile("noise")
	require.NoError(t, err)
	require.NoError(t, os.Remove(lib.Bindings))

	lib, err = cfg.Compile("noise")
	require.NoError(t, err)
	assert.FileExists(t, lib.Bindings)
	assert.Len(t, logLines(t, tools.ispcLog), 1, "objects stay cached")
	assert.Len(t, logLines(t, tools.bindgenLog), 2)
}

func TestCompile_TamperedObjectRecompiles(t *testing.T) {
	tools := installFakeTools(t)
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")

	cfg, buildDir := testConfig(t, tools)
	cfg.File(src).TargetISA(isa.AVX2i32x8)

	_, err := cfg.Compile("noise")
	require.NoError(t, err)

	obj := filepath.Join(buildDir, "noise_ispc.o")
	require.NoError(t, os.WriteFile(obj, []byte("truncated"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(obj, future, future))

	_, err = cfg.Compile("noise")
	require.NoError(t, err)
	assert.Len(t, logLines(t, tools.ispcLog), 2, "modified object fails validation and recompiles")
}

func TestCompile_EmptyLibraryName(t *testing.T) {
	_, err := New().File("a.ispc").Compile("")

	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCompile_MissingCompilerWritesNothing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")
	buildDir := filepath.Join(t.TempDir(), "build")

	_, err := New().
		Compiler("ispcb-test-no-such-compiler").
		OutDir(buildDir).
		File(src).
		Compile("noise")

	var notFound *errs.ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ispc", notFound.Tool)

	_, statErr := os.Stat(buildDir)
	assert.True(t, os.IsNotExist(statErr), "probe failure must precede any writes")
}

func TestCompile_CompilerFailure(t *testing.T) {
	tools := installFakeTools(t)
	t.Setenv("FAKE_ISPC_FAIL", "syntax error at line 3")

	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "broken.ispc", "export void broken(\n")

	cfg, _ := testConfig(t, tools)
	_, err := cfg.File(src).TargetISA(isa.AVX2i32x8).Compile("broken")

	var compErr *errs.CompilationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, src, compErr.File)
	assert.Equal(t, 1, compErr.ExitCode)
	assert.Contains(t, compErr.Stderr, "syntax error at line 3")
}

func TestCompile_InstrumentVersionGate(t *testing.T) {
	tools := installFakeTools(t)
	t.Setenv("FAKE_ISPC_VERSION", "1.8.2")

	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "noise.ispc", "export void noise();\n")

	cfg, _ := testConfig(t, tools)
	cfg.File(src).TargetISA(isa.AVX2i32x8)
	cfg.Instrument = true

	_, err := cfg.Compile("noise")
	assertConfigError(t, err, "instrumentation requires")
}
