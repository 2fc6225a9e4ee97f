// Package websearch fetches a page and extracts a title/description, or runs
// a DuckDuckGo instant-answer query when there is no single URL to fetch.
// No other package in this module calls it: the BDI seek_knowledge ->
// ask_question pathway only publishes an impulse, and the validator only
// whitelists the search_web verb. Grounded on
// the teacher's pkg/connector/linkpreview.go (OpenGraph + goquery fallback
// extraction) and pkg/shared/websearch/websearch.go (DuckDuckGo instant
// answer query), adapted into one tool with a smaller, BDI-facing surface.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxPageSize = 5 * 1024 * 1024
	userAgent          = "Mozilla/5.0 (compatible; projectghost/1.0)"
	duckDuckGoAPIBase  = "https://api.duckduckgo.com/"
)

// Page is a fetched URL's extracted title and descriptive text.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// SearchResult is one DuckDuckGo related-topic hit.
type SearchResult struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResponse is a DuckDuckGo instant-answer query's result.
type SearchResponse struct {
	Query      string         `json:"query"`
	Answer     string         `json:"answer,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Definition string         `json:"definition,omitempty"`
	Results    []SearchResult `json:"results,omitempty"`
	NoResults  bool           `json:"no_results,omitempty"`
}

// Tool fetches pages and runs instant-answer queries.
type Tool struct {
	client        *http.Client
	searchAPIBase string
}

// New constructs a Tool with a bounded-timeout HTTP client.
func New() *Tool {
	return &Tool{client: &http.Client{Timeout: defaultTimeout}, searchAPIBase: duckDuckGoAPIBase}
}

// FetchPage downloads rawURL and extracts a title/description, preferring
// OpenGraph metadata and falling back to goquery's <title>/meta-description
// when OpenGraph data is incomplete.
func (t *Tool) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	og := opengraph.NewOpenGraph()
	_ = og.ProcessHTML(strings.NewReader(string(body)))

	page := &Page{URL: rawURL, Title: og.Title, Description: og.Description, SiteName: og.SiteName}
	if page.Title == "" || page.Description == "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body))); err == nil {
			if page.Title == "" {
				page.Title = extractTitle(doc)
			}
			if page.Description == "" {
				page.Description = extractDescription(doc)
			}
		}
	}
	page.Description = summarize(page.Description, 400)
	return page, nil
}

// Search runs a DuckDuckGo instant-answer query for a free-form question,
// used when the BDI engine has a topic rather than a specific URL.
func (t *Tool) Search(ctx context.Context, query string) (*SearchResponse, error) {
	apiURL := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		t.searchAPIBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var ddg struct {
		Answer        string `json:"Answer"`
		AbstractText  string `json:"AbstractText"`
		Definition    string `json:"Definition"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	response := &SearchResponse{
		Query:      query,
		Answer:     ddg.Answer,
		Summary:    ddg.AbstractText,
		Definition: ddg.Definition,
	}
	for i, topic := range ddg.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		title, snippet := splitTopicText(topic.Text)
		response.Results = append(response.Results, SearchResult{Title: title, Snippet: snippet, URL: topic.FirstURL})
		if i >= 2 {
			break
		}
	}
	if response.Answer == "" && response.Summary == "" && response.Definition == "" && len(response.Results) == 0 {
		response.NoResults = true
	}
	return response, nil
}

func splitTopicText(text string) (title, snippet string) {
	parts := strings.SplitN(text, " - ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}

func extractTitle(doc *goquery.Document) string {
	if title := doc.Find("title").First().Text(); title != "" {
		return strings.TrimSpace(title)
	}
	if h1 := doc.Find("h1").First().Text(); h1 != "" {
		return strings.TrimSpace(h1)
	}
	return ""
}

func extractDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").First().Attr("content"); exists && desc != "" {
		return strings.TrimSpace(desc)
	}
	if p := doc.Find("p").First().Text(); p != "" {
		return strings.TrimSpace(p)
	}
	return ""
}

func summarize(text string, maxLength int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLength {
		return text
	}
	cut := text[:maxLength]
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > maxLength/2 {
		cut = cut[:lastSpace]
	}
	return cut + "..."
}
