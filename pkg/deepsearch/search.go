// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package deepsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/agentctl/agentctl/pkg/httpclient"
)

// SearchResult is one external search hit spliced into a node's
// prompt before its observation is generated.
type SearchResult struct {
	Title   string
	URL     string
	Content string
}

// ExternalSearcher fetches web content for a node's
// external_search_query. maxResults and maxScrapeChars come from the
// active depth Profile.
type ExternalSearcher interface {
	Search(ctx context.Context, query string, maxResults, maxScrapeChars int) ([]SearchResult, error)
}

// Endpoint returns the result URLs for a query; WebSearcher then
// fetches and scrapes each one. Kept separate from WebSearcher so a
// caller can point it at any search API without touching the scraping
// path.
type Endpoint interface {
	URLs(ctx context.Context, query string, maxResults int) ([]string, error)
}

// WebSearcher implements ExternalSearcher by resolving result URLs
// through an Endpoint, then fetching and scraping each page's visible
// text with goquery, stripped of markup and scripts with bluemonday.
type WebSearcher struct {
	HTTP     *httpclient.Client
	Endpoint Endpoint
	sanitize *bluemonday.Policy
}

// NewWebSearcher returns a WebSearcher using client for page fetches
// and endpoint to resolve result URLs for a query.
func NewWebSearcher(client *httpclient.Client, endpoint Endpoint) *WebSearcher {
	return &WebSearcher{HTTP: client, Endpoint: endpoint, sanitize: bluemonday.StrictPolicy()}
}

func (w *WebSearcher) Search(ctx context.Context, query string, maxResults, maxScrapeChars int) ([]SearchResult, error) {
	urls, err := w.Endpoint.URLs(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("resolving search result urls for %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(urls))
	for _, u := range urls {
		r, err := w.scrape(ctx, u, maxScrapeChars)
		if err != nil {
			continue // one dead page shouldn't fail the whole search
		}
		results = append(results, r)
	}
	return results, nil
}

func (w *WebSearcher) scrape(ctx context.Context, pageURL string, maxScrapeChars int) (SearchResult, error) {
	if _, err := url.Parse(pageURL); err != nil {
		return SearchResult{}, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return SearchResult{}, fmt.Errorf("building request for %q: %w", pageURL, err)
	}

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("fetching %q: %w", pageURL, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return SearchResult{}, fmt.Errorf("parsing %q: %w", pageURL, err)
	}

	title := doc.Find("title").First().Text()
	doc.Find("script, style, nav, footer").Remove()
	text := w.sanitize.Sanitize(doc.Find("body").Text())

	if len(text) > maxScrapeChars {
		text = text[:maxScrapeChars]
	}

	return SearchResult{Title: title, URL: pageURL, Content: text}, nil
}
