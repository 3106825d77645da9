package main

import (
	"reflect"
	"testing"
)

func TestRewriteVariableShorthand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"envdesk"},
			want: []string{"envdesk"},
		},
		{
			name: "variable first",
			in:   []string{"envdesk", "PATH"},
			want: []string{"envdesk", "vars", "show", "PATH"},
		},
		{
			name: "after value flag",
			in:   []string{"envdesk", "--dir", "/tmp/store", "GOPATH"},
			want: []string{"envdesk", "--dir", "/tmp/store", "vars", "show", "GOPATH"},
		},
		{
			name: "flag with equals",
			in:   []string{"envdesk", "--format=edn", "--pretty", "LD_LIBRARY_PATH"},
			want: []string{"envdesk", "--format=edn", "--pretty", "vars", "show", "LD_LIBRARY_PATH"},
		},
		{
			name: "after double dash",
			in:   []string{"envdesk", "--", "PATH"},
			want: []string{"envdesk", "--", "vars", "show", "PATH"},
		},
		{
			name: "subcommand untouched",
			in:   []string{"envdesk", "vars", "show", "PATH"},
			want: []string{"envdesk", "vars", "show", "PATH"},
		},
		{
			name: "flag value that looks like a variable",
			in:   []string{"envdesk", "--backend", "HOST", "state"},
			want: []string{"envdesk", "--backend", "HOST", "state"},
		},
		{
			name: "lower case is not a variable",
			in:   []string{"envdesk", "path"},
			want: []string{"envdesk", "path"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := rewriteVariableShorthand(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsVariableName(t *testing.T) {
	for s, want := range map[string]bool{
		"PATH": true, "GO111MODULE": true, "_X": true,
		"": false, "1PATH": false, "Path": false, "__": false, "A-B": false,
	} {
		if got := isVariableName(s); got != want {
			t.Fatalf("isVariableName(%q) = %v, want %v", s, got, want)
		}
	}
}
