package notes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/llm"
)

func samplePlan() domain.CurriculumPlan {
	return domain.CurriculumPlan{
		LessonTitle:        "Energy Flow in Ecosystems",
		LearningObjectives: []string{"Students will explain food chains"},
		ContentOutline: []domain.Section{
			{Title: "Producers", Description: "Plants capture sunlight."},
			{Title: "Consumers", Description: "Animals eat plants or other animals."},
		},
		SuggestedAssessments: []string{"Food chain construction activity"},
	}
}

type scriptedClient struct {
	mu      sync.Mutex
	prompts []string
	reply   func(req *llm.Request) (*llm.Response, error)
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, req.User)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.reply(req)
}

func TestGenerate_FallbackWithoutClient(t *testing.T) {
	notes, err := NewGenerator(Options{}).Generate(context.Background(), samplePlan())
	require.NoError(t, err)
	require.Len(t, notes, samplePlan().SlideCount())

	for i, note := range notes {
		assert.Equal(t, i, note.Index)
		assert.True(t, note.Fallback)
		assert.NotEmpty(t, note.Markdown)
	}
	assert.Equal(t, "Energy Flow in Ecosystems", notes[0].Title)
	assert.Contains(t, notes[0].Markdown, "Welcome to Energy Flow in Ecosystems")
	assert.Equal(t, "Producers", notes[1].Title)
	assert.Contains(t, notes[1].Markdown, "Plants capture sunlight.")
	assert.Equal(t, "Assessment", notes[3].Title)
	assert.Contains(t, notes[3].Markdown, "- Food chain construction activity")
}

func TestGenerate_UsesClientAndSanitizes(t *testing.T) {
	client := &scriptedClient{reply: func(req *llm.Request) (*llm.Response, error) {
		assert.Equal(t, SystemPrompt, req.System)
		assert.Equal(t, "notes", req.Purpose)
		assert.Equal(t, "gpt-4o-mini", req.Model)
		return &llm.Response{Content: "  Ask Mary Johnson at mary@school.edu  "}, nil
	}}

	notes, err := NewGenerator(Options{Client: client, Model: "gpt-4o-mini", Concurrency: 2}).
		Generate(context.Background(), samplePlan())
	require.NoError(t, err)
	require.Len(t, notes, 4)

	for _, note := range notes {
		assert.False(t, note.Fallback)
		assert.Equal(t, "Ask [REDACTED] at [REDACTED]", note.Markdown)
	}

	joined := strings.Join(client.prompts, "\n")
	assert.Contains(t, joined, `For the title slide of a lesson titled "Energy Flow in Ecosystems"`)
	assert.Contains(t, joined, `For slide 2 titled "Consumers"`)
	assert.Contains(t, joined, "For the final assessment slide")
}

func TestGenerate_FallsBackPerSlide(t *testing.T) {
	client := &scriptedClient{reply: func(req *llm.Request) (*llm.Response, error) {
		if strings.Contains(req.User, `"Producers"`) {
			return nil, &llm.APIError{StatusCode: 500, Message: "boom"}
		}
		if strings.Contains(req.User, `"Consumers"`) {
			return &llm.Response{Content: "   "}, nil
		}
		return &llm.Response{Content: "Generated"}, nil
	}}

	notes, err := NewGenerator(Options{Client: client}).Generate(context.Background(), samplePlan())
	require.NoError(t, err)

	assert.False(t, notes[0].Fallback)
	assert.True(t, notes[1].Fallback)
	assert.Contains(t, notes[1].Markdown, "Plants capture sunlight.")
	assert.True(t, notes[2].Fallback)
	assert.False(t, notes[3].Fallback)
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{reply: func(*llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: "unused"}, nil
	}}
	_, err := NewGenerator(Options{Client: client}).Generate(ctx, samplePlan())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRenderMarkdown(t *testing.T) {
	notes := []domain.SlideNote{
		{Index: 0, Title: "Weather", Markdown: "Intro"},
		{Index: 1, Title: "Clouds", Markdown: "Cloud types\n"},
		{Index: 2, Title: "Assessment", Markdown: "Quiz"},
	}

	got := RenderMarkdown("Weather", notes, []string{"https://oercommons.org/a"})
	assert.Equal(t, `# Speaker Notes: Weather

## Slide 0: Title Slide

Intro

## Slide 1: Content Slide 1

_Clouds_

Cloud types

## Slide 2: Assessment Slide

Quiz

## Open Educational Resources

- https://oercommons.org/a
`, got)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Energy_Flow_Basics_notes.md", FileName("Energy Flow: Basics"))
	assert.Equal(t, "lesson_notes.md", FileName("???"))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Save(dir, "Weather", []domain.SlideNote{{Index: 0, Markdown: "Intro"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Weather_notes.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Speaker Notes: Weather\n\n## Slide 0: Title Slide\n\nIntro\n", string(data))
}
