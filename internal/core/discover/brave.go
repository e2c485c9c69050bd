// Package discover finds candidate source URLs through the Brave web search
// API. Accepted candidates re-enter the pipeline as ordinary sources.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inferahq/infera/internal/core"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type BraveClient struct {
	apiKey   string
	endpoint string
	httpc    *http.Client
}

func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *BraveClient) Search(ctx context.Context, query string, count int) ([]core.SearchResult, error) {
	if count <= 0 {
		count = 10
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("brave search: unexpected status %d: %s", resp.StatusCode, msg)
	}

	var out braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	results := make([]core.SearchResult, 0, len(out.Web.Results))
	for _, r := range out.Web.Results {
		results = append(results, core.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return results, nil
}

var _ core.SearchProvider = (*BraveClient)(nil)
