package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/inferahq/infera/internal/core"
)

// WebsiteExtractor fetches a page and extracts its principal text content.
type WebsiteExtractor struct {
	httpc *http.Client
}

func NewWebsiteExtractor(httpc *http.Client) *WebsiteExtractor {
	return &WebsiteExtractor{httpc: httpc}
}

func (e *WebsiteExtractor) Extract(ctx context.Context, in Input) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}
	req.Header.Set("User-Agent", "infera-notebook/1.0")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("fetch %s: status %d", in.URL, resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("parse html: %w", err)}
	}

	// Drop non-content elements before collecting text.
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("no text content at %s", in.URL)}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Website: " + hostnameOf(in.URL)
	}

	return []Document{{
		Text:  text,
		Title: title,
		Metadata: map[string]string{
			"url":  in.URL,
			"type": "website",
		},
	}}, nil
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// collapseWhitespace normalizes runs of whitespace while preserving paragraph
// breaks, so the chunker still sees structural boundaries.
func collapseWhitespace(s string) string {
	var paras []string
	for _, para := range strings.Split(s, "\n") {
		fields := strings.Fields(para)
		if len(fields) == 0 {
			continue
		}
		paras = append(paras, strings.Join(fields, " "))
	}
	return strings.Join(paras, "\n")
}
