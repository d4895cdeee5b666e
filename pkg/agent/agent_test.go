package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/logging"
	"github.com/polisai/educator-agent/pkg/notes"
	"github.com/polisai/educator-agent/pkg/oer"
	"github.com/polisai/educator-agent/pkg/planner"
)

func request() domain.PlanRequest {
	return domain.PlanRequest{GradeLevel: "8th Grade", Subject: "Environmental Science"}
}

func TestRun_WritesOutputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"url": "http://oercommons.org/courses/eco"}]}`))
	}))
	defer server.Close()

	logger := logging.Discard()
	out := t.TempDir()

	res, err := Run(context.Background(), Options{
		Request:   request(),
		Planner:   planner.New(planner.Options{Logger: logger}),
		Notes:     notes.NewGenerator(notes.Options{Logger: logger}),
		OER:       oer.NewFinder(oer.Config{BaseURL: server.URL}, logger),
		OERCount:  3,
		OutputDir: out,
		Logger:    logger,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, res.RunID), res.OutputDir)
	assert.Equal(t, planner.DemoPlan().LessonTitle, res.Plan.LessonTitle)
	assert.Equal(t, []string{"https://oercommons.org/courses/eco"}, res.Resources)
	assert.Len(t, res.Notes, len(res.Plan.ContentOutline)+2)

	data, err := os.ReadFile(res.PlanPath)
	require.NoError(t, err)
	var written domain.CurriculumPlan
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, res.Plan, written)
	assert.True(t, strings.Index(string(data), "lesson_title") < strings.Index(string(data), "learning_objectives"))

	assert.Equal(t, filepath.Join(res.OutputDir, "Introduction_to_Environmental_Science_notes.md"), res.NotesPath)
	md, err := os.ReadFile(res.NotesPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "https://oercommons.org/courses/eco")

	links, err := os.ReadFile(res.ResourcesPath)
	require.NoError(t, err)
	assert.Equal(t, "https://oercommons.org/courses/eco\n", string(links))
}

func TestRun_PlanOnly(t *testing.T) {
	out := t.TempDir()
	res, err := Run(context.Background(), Options{
		Request:   request(),
		Planner:   planner.New(planner.Options{Logger: logging.Discard()}),
		OutputDir: out,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.Empty(t, res.Resources)
	assert.Empty(t, res.NotesPath)
	assert.Empty(t, res.ResourcesPath)

	entries, err := os.ReadDir(res.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, PlanFile, entries[0].Name())
}

func TestRun_SkipWrite(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Request:   request(),
		Planner:   planner.New(planner.Options{Logger: logging.Discard()}),
		SkipWrite: true,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.OutputDir)
	assert.Empty(t, res.PlanPath)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(context.Background(), Options{Request: request()})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Request: domain.PlanRequest{Subject: "Math"},
		Planner: planner.New(planner.Options{Logger: logging.Discard()}),
		Logger:  logging.Discard(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	_, err = Run(context.Background(), Options{
		Request:   request(),
		Planner:   planner.New(planner.Options{Logger: logging.Discard()}),
		OutputDir: blocker,
		Logger:    logging.Discard(),
	})
	require.Error(t, err)
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.CodeOutputFailed, de.Code)
}
