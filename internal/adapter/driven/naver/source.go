// Package naver implements the ReviewSource port by scraping the review
// count out of a Naver Maps place page.
package naver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewSource = (*Source)(nil)

// ErrCountNotFound is returned when none of the candidate pages yielded a
// review count.
var ErrCountNotFound = errors.New("review count not found in any candidate page")

// maxBodyBytes bounds how much of a page is read when scanning for a count.
const maxBodyBytes = 4 << 20

// countPatterns are tried in priority order. The embedded JSON keys are the
// most reliable signal; the localized text patterns ("리뷰 663", "663개 리뷰",
// "후기 663", "전체 663") are fallbacks for markup-only pages.
var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"reviewCount"\s*:\s*(\d+)`),
	regexp.MustCompile(`"totalReviewCount"\s*:\s*(\d+)`),
	regexp.MustCompile(`리뷰\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*개\s*리뷰`),
	regexp.MustCompile(`후기\s*(\d+)`),
	regexp.MustCompile(`전체\s*(\d+)`),
}

// Source fetches the current review count from a place listing. It tries a
// list of candidate URLs in order (review tab first) and extracts the count
// with a prioritized pattern set.
type Source struct {
	client *http.Client
	urls   []string
}

// NewSource creates a Source for the given place page URL. The HTTP
// transport caches conditionally (ETag / Last-Modified revalidation) so
// frequent polls of an unchanged page stay cheap.
func NewSource(targetURL string) *Source {
	client := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   30 * time.Second,
	}
	return NewSourceWithClient(client, candidateURLs(targetURL)...)
}

// NewSourceWithClient creates a Source with a custom http.Client and explicit
// candidate URLs. This constructor is intended for testing, allowing
// injection of an httptest server.
func NewSourceWithClient(client *http.Client, urls ...string) *Source {
	return &Source{client: client, urls: urls}
}

// candidateURLs derives the fetch order from the base place URL: the review
// tab first, then the list-entry variant, then the plain page.
func candidateURLs(base string) []string {
	return []string{
		base + "?placePath=/review",
		base + "?placePath=/review&entry=pll",
		base,
	}
}

// FetchCount tries each candidate URL until one yields a review count.
// All failures are logged per attempt; ErrCountNotFound (wrapping the last
// transport error, if any) is returned when every attempt fails.
func (s *Source) FetchCount(ctx context.Context) (model.ReviewCount, error) {
	var lastErr error

	for attempt, url := range s.urls {
		count, err := s.fetchOne(ctx, url)
		if err != nil {
			slog.Warn("review count attempt failed", "attempt", attempt+1, "url", url, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		slog.Info("review count fetched", "count", count, "url", url, "attempt", attempt+1)
		return model.ReviewCount{
			Count:     count,
			Source:    url,
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	if lastErr != nil {
		return model.ReviewCount{}, fmt.Errorf("%w: %w", ErrCountNotFound, lastErr)
	}
	return model.ReviewCount{}, ErrCountNotFound
}

func (s *Source) fetchOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	// Browser-like headers; the page serves a bot-check shell without them.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://map.naver.com/")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}

	count, ok := extractCount(body)
	if !ok {
		return 0, ErrCountNotFound
	}

	return count, nil
}

// extractCount scans the page with the prioritized pattern set. Within the
// first pattern tier that matches at all, the largest number wins: the page
// repeats the count in several places and truncated renderings are smaller.
func extractCount(body []byte) (int, bool) {
	for _, pattern := range countPatterns {
		matches := pattern.FindAllSubmatch(body, -1)
		if len(matches) == 0 {
			continue
		}

		best := -1
		for _, m := range matches {
			n, err := strconv.Atoi(string(m[1]))
			if err != nil {
				continue
			}
			if n > best {
				best = n
			}
		}

		if best >= 0 {
			return best, true
		}
	}

	return 0, false
}
