// Package watch sanitizes JSON documents as they land in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

const (
	// OutputSuffix is appended to the base name of every sanitized file.
	OutputSuffix = ".sanitized.json"

	defaultDebounce = 100 * time.Millisecond
)

// Result describes one processed file.
type Result struct {
	Input   string
	Output  string
	Summary sanitize.Summary
	Err     error
}

// Options configures a Watcher.
type Options struct {
	Dir      string
	OutDir   string
	Patterns *sanitize.PatternSet
	Logger   *slog.Logger
	Debounce time.Duration
	// Metrics, when set, receives per-file counters.
	Metrics *Metrics
	// OnResult, when set, is called after every processed file.
	OnResult func(Result)
}

// Watcher rewrites *.json files created or written in a directory.
type Watcher struct {
	dir      string
	outDir   string
	patterns atomic.Pointer[sanitize.PatternSet]
	logger   *slog.Logger
	debounce time.Duration
	metrics  *Metrics
	onResult func(Result)
}

// New validates opts and prepares a Watcher. The output directory is created if needed.
func New(opts Options) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watch: directory is required")
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}

	outDir := dir
	if opts.OutDir != "" {
		if outDir, err = filepath.Abs(opts.OutDir); err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		dir:      dir,
		outDir:   outDir,
		logger:   logger,
		debounce: debounce,
		metrics:  opts.Metrics,
		onResult: opts.OnResult,
	}
	w.SetPatterns(opts.Patterns)
	return w, nil
}

// SetPatterns swaps the pattern set used for files processed from now on.
// A nil set selects the builtin rules.
func (w *Watcher) SetPatterns(ps *sanitize.PatternSet) {
	if ps == nil {
		ps = sanitize.Default()
	}
	w.patterns.Store(ps)
}

// Sweep processes every eligible file already in the directory.
func (w *Watcher) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !Eligible(e.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	w.logger.Info("watching for JSON documents", "dir", w.dir, "out_dir", w.outDir)

	var (
		mu     sync.Mutex
		timers = map[string]*time.Timer{}
		wg     sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for path, t := range timers {
			if t.Stop() {
				wg.Done()
			}
			delete(timers, path)
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !Eligible(filepath.Base(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			path := filepath.Clean(event.Name)
			mu.Lock()
			if t, exists := timers[path]; exists && t.Stop() {
				wg.Done()
			}
			wg.Add(1)
			var timer *time.Timer
			timer = time.AfterFunc(w.debounce, func() {
				defer wg.Done()
				mu.Lock()
				if timers[path] == timer {
					delete(timers, path)
				}
				mu.Unlock()
				w.process(ctx, path)
			})
			timers[path] = timer
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) process(ctx context.Context, in string) {
	out := filepath.Join(w.outDir, OutputName(filepath.Base(in)))
	start := time.Now()
	summary, err := SanitizeFile(w.patterns.Load(), in, out)
	w.metrics.RecordFile(err, time.Since(start))
	if err != nil {
		w.logger.Error("failed to sanitize file", "file", in, "error", err)
	} else {
		w.logger.Info("sanitized file",
			"file", in,
			"output", out,
			"redactions", summary.Total(),
			"changed_texts", summary.ChangedTexts,
		)
		telemetry.RecordRedactions(ctx, "watch", summary.Counts)
		w.metrics.RecordRedactions(summary.Counts)
	}
	if w.onResult != nil {
		w.onResult(Result{Input: in, Output: out, Summary: summary, Err: err})
	}
}

// Eligible reports whether a file name is a JSON document that has not been sanitized yet.
func Eligible(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, OutputSuffix) && !strings.HasPrefix(name, ".")
}

// OutputName maps "lesson.json" to "lesson.sanitized.json".
func OutputName(name string) string {
	return strings.TrimSuffix(name, ".json") + OutputSuffix
}

// SanitizeFile reads the JSON document in, redacts every string leaf, and writes the
// result to out through a temporary file so readers never see partial output.
func SanitizeFile(ps *sanitize.PatternSet, in, out string) (sanitize.Summary, error) {
	//nolint:gosec // Paths come from the watched directory or the command line
	data, err := os.ReadFile(in)
	if err != nil {
		return sanitize.Summary{}, fmt.Errorf("failed to read %s: %w", in, err)
	}

	doc, err := sanitize.DecodeJSON(data)
	if err != nil {
		return sanitize.Summary{}, fmt.Errorf("failed to decode %s: %w", in, err)
	}

	summary := sanitize.Inspect(ps, doc)
	encoded, err := sanitize.EncodeJSON(sanitize.Sanitize(ps, doc), "  ")
	if err != nil {
		return sanitize.Summary{}, fmt.Errorf("failed to encode %s: %w", in, err)
	}

	if err := writeAtomic(out, append(encoded, '\n')); err != nil {
		return sanitize.Summary{}, err
	}
	return summary, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sanitize-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
