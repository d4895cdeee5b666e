// Package oer suggests open educational resources from OER Commons.
package oer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/polisai/educator-agent/internal/governance"
)

const (
	// DefaultBaseURL is the OER Commons site.
	DefaultBaseURL = "https://oercommons.org"
	// DefaultCount is the number of resources suggested when none is requested.
	DefaultCount = 5

	resourcePrefix = "https://www.oercommons.org"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 2 << 20
)

var fallbackMaterialTypes = []string{
	"", "lesson-plan", "activity", "assessment", "textbook", "interactive", "game", "simulation",
}

// Config configures a Finder.
type Config struct {
	BaseURL string                 `yaml:"base_url"`
	Timeout time.Duration          `yaml:"timeout"`
	Retry   governance.RetryConfig `yaml:"retry"`
}

// Finder queries the OER Commons search API.
type Finder struct {
	baseURL    string
	httpClient *http.Client
	retry      *governance.RetryPolicy
	logger     *slog.Logger
}

// NewFinder builds a Finder. A nil logger falls back to slog.Default().
func NewFinder(cfg Config, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Finder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      governance.NewRetryPolicy(cfg.Retry),
		logger:     logger,
	}
}

type searchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

// Suggest returns up to count HTTPS resource URLs for topic. When the API cannot
// be reached or answers with an error, search-page URLs are returned instead.
func (f *Finder) Suggest(ctx context.Context, topic string, count int) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("oer: topic is required")
	}
	if count <= 0 {
		count = DefaultCount
	}

	var result searchResponse
	_, err := f.retry.ExecuteWithRetry(ctx, func(ctx context.Context) (int, error) {
		return f.search(ctx, topic, count, &result)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.logger.Warn("OER Commons API not accessible, using search-based URLs", "error", err)
		return FallbackURLs(topic, count), nil
	}

	urls := make([]string, 0, count)
	for _, r := range result.Results {
		if u := NormalizeURL(r.URL); u != "" {
			urls = append(urls, u)
		}
		if len(urls) == count {
			break
		}
	}
	f.logger.Debug("found OER resources", "count", len(urls))
	return urls, nil
}

func (f *Finder) search(ctx context.Context, topic string, count int, out *searchResponse) (int, error) {
	query := url.Values{}
	query.Set("search", topic)
	query.Set("per_page", strconv.Itoa(count))
	query.Set("only", "resource")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/v1/search?"+query.Encode(), nil)
	if err != nil {
		return 0, governance.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || !governance.IsRetryableError(err) {
			return 0, governance.Permanent(err)
		}
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("oer search returned status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, governance.Permanent(fmt.Errorf("oer search returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read oer response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, governance.Permanent(fmt.Errorf("decode oer response: %w", err))
	}
	return resp.StatusCode, nil
}

// NormalizeURL upgrades http links to https and resolves site-relative paths.
// Blank input yields "".
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "http://"):
		return "https://" + strings.TrimPrefix(u, "http://")
	case strings.HasPrefix(u, "/"):
		return resourcePrefix + u
	default:
		return resourcePrefix + "/" + u
	}
}

// FallbackURLs builds OER Commons search links for topic, one per material type.
func FallbackURLs(topic string, count int) []string {
	q := "https://oercommons.org/search?q=" + url.QueryEscape(topic)
	out := make([]string, 0, len(fallbackMaterialTypes))
	for _, material := range fallbackMaterialTypes {
		if len(out) == count {
			break
		}
		if material == "" {
			out = append(out, q)
			continue
		}
		out = append(out, q+"&f.material_type="+material)
	}
	return out
}
