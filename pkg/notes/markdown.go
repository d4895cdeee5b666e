package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/polisai/educator-agent/pkg/domain"
)

// RenderMarkdown renders the notes document. Resources, when present, are listed
// in a final section.
func RenderMarkdown(lessonTitle string, notes []domain.SlideNote, resources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Speaker Notes: %s\n\n", lessonTitle)

	last := len(notes) - 1
	for i, note := range notes {
		kind := fmt.Sprintf("Content Slide %d", note.Index)
		switch {
		case i == 0:
			kind = "Title Slide"
		case i == last:
			kind = "Assessment Slide"
		}
		fmt.Fprintf(&b, "## Slide %d: %s\n\n", note.Index, kind)
		if note.Title != "" && i != 0 && i != last {
			fmt.Fprintf(&b, "_%s_\n\n", note.Title)
		}
		b.WriteString(strings.TrimSpace(note.Markdown))
		b.WriteString("\n\n")
	}

	if len(resources) > 0 {
		b.WriteString("## Open Educational Resources\n\n")
		for _, url := range resources {
			fmt.Fprintf(&b, "- %s\n", url)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FileName derives the notes file name from the lesson title,
// e.g. "Energy Flow: Basics" becomes "Energy_Flow_Basics_notes.md".
func FileName(lessonTitle string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, lessonTitle)
	slug := strings.Join(strings.Fields(safe), "_")
	if slug == "" {
		slug = "lesson"
	}
	return slug + "_notes.md"
}

// Save writes the rendered notes into dir and returns the file path.
func Save(dir, lessonTitle string, notes []domain.SlideNote, resources []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("notes: create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(lessonTitle))
	if err := os.WriteFile(path, []byte(RenderMarkdown(lessonTitle, notes, resources)), 0o600); err != nil {
		return "", fmt.Errorf("notes: write %s: %w", path, err)
	}
	return path, nil
}
