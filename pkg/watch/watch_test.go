package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/educator-agent/pkg/logging"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
)

const lessonDoc = `{"title": "Cells", "teacher": {"email": "ms.jones@school.edu", "phone": "555-123-4567"}, "slides": 3, "notes": ["Ada Lovelace visits", null]}`

func TestSanitizeFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "lesson.json")
	out := filepath.Join(dir, OutputName("lesson.json"))
	require.NoError(t, os.WriteFile(in, []byte(lessonDoc), 0o600))

	summary, err := SanitizeFile(sanitize.Default(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total())
	assert.Equal(t, 1, summary.Counts[sanitize.CategoryEmail])

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Cells", "teacher": {"email": "[REDACTED]", "phone": "[REDACTED]"}, "slides": 3, "notes": ["[REDACTED] visits", null]}`, string(got))

	original, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, lessonDoc, string(original))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestSanitizeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := SanitizeFile(nil, filepath.Join(dir, "missing.json"), filepath.Join(dir, "out.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"a": `), 0o600))
	_, err = SanitizeFile(nil, bad, filepath.Join(dir, "out.json"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.json"))
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible("plan.json"))
	assert.False(t, Eligible("plan.sanitized.json"))
	assert.False(t, Eligible("notes.md"))
	assert.False(t, Eligible(".hidden.json"))
	assert.Equal(t, "plan.sanitized.json", OutputName("plan.json"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o600))
	_, err = New(Options{Dir: file})
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "clean")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"who": "call 555-123-4567"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sanitized.json"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o600))

	var results []Result
	w, err := New(Options{Dir: dir, OutDir: outDir, Logger: logging.Discard(), OnResult: func(r Result) {
		results = append(results, r)
	}})
	require.NoError(t, err)
	require.NoError(t, w.Sweep(context.Background()))

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	got, err := os.ReadFile(filepath.Join(outDir, "a.sanitized.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"who": "call [REDACTED]"}`, string(got))
}

func TestRun_SanitizesNewFiles(t *testing.T) {
	dir := t.TempDir()
	results := make(chan Result, 8)

	ps, err := sanitize.NewBuilder(nil).WithMarker("[PII]").Build()
	require.NoError(t, err)

	w, err := New(Options{
		Dir:      dir,
		Patterns: ps,
		Logger:   logging.Discard(),
		Debounce: 20 * time.Millisecond,
		OnResult: func(r Result) { results <- r },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.json"), []byte(`["reach me at kid@school.org"]`), 0o600))

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, filepath.Join(dir, "new.sanitized.json"), r.Output)
		got, err := os.ReadFile(r.Output)
		require.NoError(t, err)
		assert.JSONEq(t, `["reach me at [PII]"]`, string(got))
	case <-time.After(5 * time.Second):
		t.Fatal("file was not sanitized")
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_RecordsSweep(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"who": "call 555-123-4567", "mail": "ms.jones@school.edu"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"broken": `), 0o600))

	metrics := NewMetrics()
	w, err := New(Options{Dir: dir, Logger: logging.Discard(), Metrics: metrics})
	require.NoError(t, err)
	require.NoError(t, w.Sweep(context.Background()))
	metrics.RecordConfigReload(ReloadSuccess)
	metrics.RecordConfigReload(ReloadError)

	body := scrape(t, metrics)
	for _, want := range []string{
		`sanitizer_files_processed_total{status="success"} 1`,
		`sanitizer_files_processed_total{status="error"} 1`,
		`sanitizer_redactions_total{category="phone"} 1`,
		`sanitizer_redactions_total{category="email"} 1`,
		`sanitizer_config_reloads_total{status="success"} 1`,
		`sanitizer_config_reloads_total{status="error"} 1`,
		`sanitizer_file_duration_seconds_count 2`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFile(nil, time.Millisecond)
		m.RecordRedactions(map[string]int{"email": 1})
		m.RecordConfigReload(ReloadSuccess)
	})
}
