package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/customHttpClient"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/pkg/logger_i"
)

var (
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern  = regexp.MustCompile(`[ \t]+`)
)

// HTTPFetcher pulls pages over HTTP and reduces HTML to plain text. Retries
// cover 429 and 5xx responses with exponential backoff; 4xx are permanent.
type HTTPFetcher struct {
	client *http.Client
	logger *logger_i.Logger
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: customHttpClient.Pooled(),
		logger: logger_i.NewLogger("fetcher"),
	}
}

func (f *HTTPFetcher) Extract(ctx context.Context, sourceURL string) (ExtractedContent, error) {
	log := f.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "sourceUrl", sourceURL)

	if !commonModels.ValidSourceURL(sourceURL) {
		return ExtractedContent{}, fmt.Errorf("invalid source url: %s", sourceURL)
	}

	body, err := f.fetchWithRetries(ctx, log, sourceURL)
	if err != nil {
		return ExtractedContent{}, err
	}

	content := htmlToText(body)
	if strings.TrimSpace(content) == "" {
		return ExtractedContent{}, fmt.Errorf("no textual content at %s", sourceURL)
	}

	return ExtractedContent{
		Content: content,
		Title:   extractTitle(body),
	}, nil
}

func (f *HTTPFetcher) fetchWithRetries(ctx context.Context, log *logger_i.Logger, sourceURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= config.FetchMaxRetries; attempt++ {
		if attempt > 0 {
			delay := config.FetchBackoffBase << uint(attempt-1)
			log.Debug("Retrying fetch", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := f.fetchOnce(ctx, sourceURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		log.Warn("Fetch attempt failed", "attempt", attempt, "error", err.Error())
	}
	return "", lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, sourceURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", config.FetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("fetch %s: status %d", sourceURL, resp.StatusCode)
	default:
		return "", false, fmt.Errorf("fetch %s: status %d", sourceURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	return string(body), false, nil
}

func extractTitle(html string) string {
	m := titlePattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(tagPattern.ReplaceAllString(m[1], " "))
}

// htmlToText strips markup down to readable text. Good enough for indexing,
// not a full DOM walk.
func htmlToText(html string) string {
	text := scriptPattern.ReplaceAllString(html, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
