package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polisai/educator-agent/pkg/config"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/watch"
)

type sanitizeFlags struct {
	watchDir    string
	outDir      string
	metricsAddr string
	text        bool
}

func newSanitizeCmd(a *app) *cobra.Command {
	f := &sanitizeFlags{}

	cmd := &cobra.Command{
		Use:   "sanitize [FILE|-]",
		Short: "Redact personal data and profanity from JSON documents",
		Long: `Reads a JSON document from FILE (or stdin when FILE is "-" or omitted) and
prints it with every string redacted. Keys, numbers, booleans and nulls are kept.

With --watch DIR every *.json file created or written in DIR is rewritten into
<name>.sanitized.json. When --config is given, sanitizer changes in the config
file apply to files processed afterwards. --metrics-addr serves Prometheus
metrics on /metrics while watching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.metricsAddr != "" && f.watchDir == "" {
				return fmt.Errorf("--metrics-addr requires --watch")
			}
			if f.watchDir != "" {
				if len(args) > 0 {
					return fmt.Errorf("--watch does not take a file argument")
				}
				return a.runWatch(cmd, f)
			}
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return a.runSanitize(cmd, f, input)
		},
	}

	cmd.Flags().StringVarP(&f.watchDir, "watch", "w", "", "Watch a directory and sanitize JSON files as they change")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "Directory for sanitized files in watch mode (default: the watched directory)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address in watch mode (e.g. :9090)")
	cmd.Flags().BoolVar(&f.text, "text", false, "Treat the input as plain text instead of JSON")

	return cmd
}

func (a *app) runSanitize(cmd *cobra.Command, f *sanitizeFlags, input string) error {
	patterns, err := a.cfg.Sanitizer.PatternSet()
	if err != nil {
		return err
	}

	var data []byte
	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		//nolint:gosec // Input path is chosen by the operator
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.text {
		_, err = io.WriteString(out, sanitize.Text(patterns, string(data)))
		return err
	}

	doc, err := sanitize.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	summary := sanitize.Inspect(patterns, doc)
	encoded, err := sanitize.EncodeJSON(sanitize.Sanitize(patterns, doc), "  ")
	if err != nil {
		return err
	}
	a.logger.Info("sanitized document",
		"redactions", summary.Total(),
		"categories", summary.Counts,
		"text_leaves", summary.TextLeaves,
	)
	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}

func (a *app) runWatch(cmd *cobra.Command, f *sanitizeFlags) error {
	patterns, err := a.cfg.Sanitizer.PatternSet()
	if err != nil {
		return err
	}

	var metrics *watch.Metrics
	if f.metricsAddr != "" {
		metrics = watch.NewMetrics()
	}

	w, err := watch.New(watch.Options{
		Dir:      f.watchDir,
		OutDir:   f.outDir,
		Patterns: patterns,
		Logger:   a.logger,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.startTelemetry(ctx)()

	if metrics != nil {
		_, shutdown, err := a.serveMetrics(f.metricsAddr, metrics)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	if a.configPath != "" {
		provider, err := config.NewFileProvider(a.configPath, a.logger)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Close() }()
		provider.OnReload(func(err error) {
			if err != nil {
				metrics.RecordConfigReload(watch.ReloadError)
				return
			}
			metrics.RecordConfigReload(watch.ReloadSuccess)
		})
		go a.followConfig(ctx, provider.Subscribe(), w)
	}

	if err := w.Sweep(ctx); err != nil {
		return err
	}
	return w.Run(ctx)
}

// serveMetrics starts the /metrics listener. It returns the bound address and a
// function that stops the server.
func (a *app) serveMetrics(addr string, metrics *watch.Metrics) (string, func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", otelhttp.NewHandler(metrics.Handler(), "sanitizer.metrics"))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.logger.Info("serving metrics", "addr", ln.Addr().String())

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

// followConfig swaps the watcher's pattern set whenever the config file changes.
func (a *app) followConfig(ctx context.Context, updates <-chan *config.Config, w *watch.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			ps, err := cfg.Sanitizer.PatternSet()
			if err != nil {
				a.logger.Error("ignoring sanitizer config", "error", err)
				continue
			}
			w.SetPatterns(ps)
		}
	}
}
