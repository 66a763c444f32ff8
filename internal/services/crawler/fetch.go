// -----------------------------------------------------------------------
// Crawler Fetch - Page retrieval, content extraction, link discovery
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/corvus-labs/gnosis/internal/models"
)

// fetchPage retrieves one page after waiting on its host's courtesy limiter,
// then extracts title, markdown text, and outbound links. The link list is
// already restricted to the seed's domain and capped to the per-page
// maximum, first-N in document order.
func (s *Service) fetchPage(ctx context.Context, entry frontierEntry, limiters *hostLimiters, seedHost string) pageOutcome {
	if err := limiters.get(entry.url.Host).Wait(ctx); err != nil {
		return pageOutcome{err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.url.String(), nil)
	if err != nil {
		return pageOutcome{err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return pageOutcome{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return pageOutcome{err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return pageOutcome{err: fmt.Errorf("reading body: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return pageOutcome{err: fmt.Errorf("parsing HTML: %w", err)}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := s.extractContent(string(body), entry.url)
	links := s.extractLinks(doc, entry.url, seedHost)

	s.logger.Debug().
		Str("url", entry.url.String()).
		Int("depth", entry.depth).
		Int("links", len(links)).
		Msg("Fetched page")

	return pageOutcome{
		page: &models.CrawlPage{
			URL:       entry.url.String(),
			Title:     title,
			Text:      text,
			Depth:     entry.depth,
			ParentURL: entry.parent,
		},
		links: links,
	}
}

// extractContent converts the page body to markdown, stripping chrome
// elements first so navigation noise never reaches the knowledge base.
func (s *Service) extractContent(html string, pageURL *url.URL) string {
	converter := md.NewConverter(pageURL.Host, true, nil)
	converter.Remove("script", "style", "nav", "header", "footer", "iframe", "noscript")

	markdown, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL.String()).Msg("Markdown conversion failed, falling back to raw text")
		doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if docErr != nil {
			return ""
		}
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(markdown)
}

// extractLinks discovers outbound anchors in document order, resolves them
// against the page URL, filters to the seed's domain, and truncates the
// filtered list to the per-page cap. The domain filter runs before the cap
// so an off-domain anchor never consumes a cap slot.
func (s *Service) extractLinks(doc *goquery.Document, pageURL *url.URL, seedHost string) []*url.URL {
	if s.maxLinks <= 0 {
		return nil
	}

	var links []*url.URL
	seen := make(map[string]bool)

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, exists := sel.Attr("href")
		if !exists || shouldSkipLink(href) {
			return true
		}

		resolved, err := pageURL.Parse(href)
		if err != nil {
			return true
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		if !strings.EqualFold(resolved.Host, seedHost) {
			return true
		}

		key := normalizeURL(resolved)
		if seen[key] {
			return true
		}
		seen[key] = true

		links = append(links, resolved)
		return len(links) < s.maxLinks
	})

	return links
}

// shouldSkipLink filters hrefs that can never be crawlable pages.
func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

// normalizeURL reduces a URL to lowercase scheme+host+path with the query
// string and fragment dropped, so link-parameter variations of the same page
// are visited once per crawl.
func normalizeURL(u *url.URL) string {
	path := strings.TrimSuffix(u.Path, "/")
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}
