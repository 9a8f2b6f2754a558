// Package report writes finished research reports to disk as Markdown
// files with a trailing sources section.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sgrlabs/agentcore/internal/research"
)

// Writer writes a report to a fixed directory, named
// "{timestamp}_{safe title}.md".
type Writer struct {
	Dir string
}

// New creates a Writer rooted at dir, creating it if necessary happens
// lazily on the first Write call.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Write renders title/content/sources into a Markdown file under w.Dir and
// returns its path and the word count of content.
func (w *Writer) Write(title, content string, sources []research.Source) (string, int, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("report: create directory: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s.md", now.Format("20060102_150405"), safeTitle(title))
	path := filepath.Join(w.Dir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "*Created: %s*\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(content)
	b.WriteString("\n\n")
	if len(sources) > 0 {
		b.WriteString("---\n\n## Sources\n\n")
		lines := make([]string, 0, len(sources))
		for _, s := range sources {
			lines = append(lines, s.String())
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", 0, fmt.Errorf("report: write file: %w", err)
	}

	return path, len(strings.Fields(content)), nil
}

func safeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if r == ' ' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}
