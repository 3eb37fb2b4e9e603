package bindgen

import (
	"bytes"
	"fmt"
	"strings"
)

// taskPrimitives are the foreign task-launch entry points the compiler
// references for its parallel constructs. They have no host equivalent, so
// declarations mentioning them are stubbed out rather than guessed at.
var taskPrimitives = []string{"ISPCLaunch", "ISPCSync", "ISPCAlloc", "ISPCInstrument"}

// typeRewrites maps C fixed-width spellings the binding tool may leave in
// declarations onto the host equivalents. Each mapping preserves width and
// signedness exactly; there is deliberately no entry that narrows.
var typeRewrites = map[string]string{
	"int8_t":   "int8",
	"int16_t":  "int16",
	"int32_t":  "int32",
	"int64_t":  "int64",
	"uint8_t":  "uint8",
	"uint16_t": "uint16",
	"uint32_t": "uint32",
	"uint64_t": "uint64",
	"size_t":   "uintptr",
}

// Postprocess turns the binding tool's raw output into the final module.
// Declaration order is preserved line for line so the module diffs cleanly
// across regenerations. Declarations referencing foreign task primitives
// are commented out and reported as warnings.
func Postprocess(raw []byte, lib string) ([]byte, []string) {
	var out bytes.Buffer
	var warnings []string

	fmt.Fprintf(&out, "// Code generated for library %s. DO NOT EDIT.\n", lib)
	out.WriteString("//\n")
	out.WriteString("// Every function in this module calls into foreign code; the usual\n")
	out.WriteString("// host memory-safety guarantees do not apply across these calls.\n\n")

	for _, line := range strings.SplitAfter(string(raw), "\n") {
		if prim := referencesTaskPrimitive(line); prim != "" {
			trimmed := strings.TrimRight(line, "\n")
			out.WriteString("// unsupported (foreign task primitive): " + trimmed + "\n")
			warnings = append(warnings,
				fmt.Sprintf("skipped declaration referencing %s: no host equivalent for foreign task launch", prim))

			continue
		}

		out.WriteString(rewriteTypes(line))
	}

	return out.Bytes(), warnings
}

func referencesTaskPrimitive(line string) string {
	for _, prim := range taskPrimitives {
		if strings.Contains(line, prim) {
			return prim
		}
	}

	return ""
}

func rewriteTypes(line string) string {
	for from, to := range typeRewrites {
		if !strings.Contains(line, from) {
			continue
		}

		// Whole-token replacement only; "uint32_t" inside a longer
		// identifier stays untouched.
		var b strings.Builder
		for len(line) > 0 {
			i := strings.Index(line, from)
			if i < 0 {
				break
			}

			if isIdentBoundary(line, i, len(from)) {
				b.WriteString(line[:i])
				b.WriteString(to)
			} else {
				b.WriteString(line[:i+len(from)])
			}

			line = line[i+len(from):]
		}

		b.WriteString(line)
		line = b.String()
	}

	return line
}

func isIdentBoundary(s string, start, length int) bool {
	if start > 0 && isIdentChar(s[start-1]) {
		return false
	}

	end := start + length
	if end < len(s) && isIdentChar(s[end]) {
		return false
	}

	return true
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
