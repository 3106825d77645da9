package main

import (
	"os"
	"strings"

	"envdesk/internal/cli"
)

// isVariableName accepts upper-case shell identifiers such as PATH or GOPATH.
// Subcommands are lower-case, so the two never collide.
func isVariableName(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	hasUpper := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return hasUpper
}

// rewriteVariableShorthand turns `envdesk PATH` into `envdesk vars show PATH`.
// Persistent flags may come first, so it looks for the first positional token.
func rewriteVariableShorthand(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":       true,
		"--backend":   true,
		"--format":    true,
		"--log-level": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isVariableName(argv[i+1]) {
				return splice(argv, i+1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isVariableName(a) {
			return splice(argv, i)
		}
		return argv
	}
	return argv
}

func splice(argv []string, at int) []string {
	out := make([]string, 0, len(argv)+2)
	out = append(out, argv[:at]...)
	out = append(out, "vars", "show")
	return append(out, argv[at:]...)
}

func main() {
	os.Args = rewriteVariableShorthand(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
