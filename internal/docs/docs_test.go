package docs

import (
	"slices"
	"strings"
	"testing"
)

func TestTopics_AllReadable(t *testing.T) {
	topics := Topics()
	for _, want := range []string{"overview", "compaction", "keys"} {
		if !slices.Contains(topics, want) {
			t.Fatalf("missing topic %q in %v", want, topics)
		}
	}
	for _, topic := range topics {
		body, ok := Get(topic)
		if !ok || strings.TrimSpace(body) == "" {
			t.Fatalf("topic %q is empty", topic)
		}
	}
}

func TestGet_RejectsPaths(t *testing.T) {
	if _, ok := Get("../docs"); ok {
		t.Fatalf("expected path-like topic to be rejected")
	}
	if _, ok := Get("nope"); ok {
		t.Fatalf("expected unknown topic to be missing")
	}
	if got := Title("overview"); got == "overview" || got == "" {
		t.Fatalf("expected a heading for overview, got %q", got)
	}
}
