// Package shell turns an argument vector into a single command line for
// primitives that hand a string to a shell.
//
// The quoting is deliberately conservative and not general: only arguments
// containing a space, a single quote, a double quote or a backslash are
// wrapped in single quotes. Newlines, NUL bytes, $, `, ;, |, &, <, > and glob
// characters pass through untouched. Only trusted, already validated
// commands may be routed through this package.
package shell

import (
	"strings"
)

// Quote returns s unchanged, or single quoted with every embedded ' written
// as '\'' when s contains any of: space ' " \.
func Quote(s string) string {
	if !strings.ContainsAny(s, ` '"\`) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// CommandLine renders `cd <dir> && <argv0> <argv1> ...`. An empty argv
// leaves nothing after the && and most shells will reject the result.
func CommandLine(argv []string, dir string) string {
	var b strings.Builder
	b.WriteString("cd ")
	b.WriteString(Quote(dir))
	b.WriteString(" && ")
	for i, arg := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Quote(arg))
	}
	return b.String()
}
