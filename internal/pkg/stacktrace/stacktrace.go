// Package stacktrace trims runtime stacks down to this module's frames.
package stacktrace

import (
	"strings"

	"github.com/samber/lo"
)

// InternalPaths returns the "internal/<pkg>/<file>.go:<line>" locations of a
// debug.Stack dump, innermost frame first.
func InternalPaths(stack []byte) []string {
	return lo.FilterMap(strings.Split(string(stack), "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		i := strings.Index(line, "/internal/")
		if i == -1 {
			return "", false
		}
		loc, _, _ := strings.Cut(line[i+1:], " ")
		return loc, strings.Contains(loc, ".go:")
	})
}
