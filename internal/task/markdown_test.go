package task_test

import (
	"strings"
	"testing"

	"github.com/dechogo/hearing-gateway/internal/task"
)

func TestCleanMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips code block", "before\n```go\nfmt.Println(1)\n```\nafter", "before\n\nafter"},
		{"strips inline code", "run `go test` now", "run  now"},
		{"drops image but keeps surrounding text", "see ![alt](img.png) here", "see  here"},
		{"keeps link text, drops url", "read [the docs](https://example.com) please", "read the docs please"},
		{"strips header marker", "# Title\nbody", "Title\nbody"},
		{"unwraps bold", "this is **important** text", "this is important text"},
		{"unwraps italic", "this is _subtle_ text", "this is subtle text"},
		{"strips unordered list marker", "- first\n- second", "first\nsecond"},
		{"strips ordered list marker", "1. first\n2. second", "first\nsecond"},
		{"strips blockquote marker", "> quoted line", "quoted line"},
		{"strips horizontal rule", "above\n---\nbelow", "above\n\nbelow"},
		{"collapses extra blank lines", "one\n\n\n\ntwo", "one\n\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := task.CleanMarkdown(tt.input)
			if strings.TrimSpace(got) != strings.TrimSpace(tt.want) {
				t.Errorf("CleanMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
