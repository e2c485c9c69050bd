package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/inferahq/infera/internal/core"
)

// transcriptLanguage is the fixed target language for caption tracks.
const transcriptLanguage = "en"

// YoutubeExtractor fetches a video's caption track and turns it into one
// document. Videos without captions fail with ErrTranscriptUnavailable.
type YoutubeExtractor struct {
	httpc *http.Client
}

func NewYoutubeExtractor(httpc *http.Client) *YoutubeExtractor {
	return &YoutubeExtractor{httpc: httpc}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func (e *YoutubeExtractor) Extract(ctx context.Context, in Input) ([]Document, error) {
	videoID, err := videoIDFromURL(in.URL)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}

	page, err := e.get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}

	tracks := captionTracksFromPage(page)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: video %s has no caption tracks", core.ErrTranscriptUnavailable, videoID)
	}
	track := tracks[0]
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, transcriptLanguage) {
			track = t
			break
		}
	}

	raw, err := e.get(ctx, track.BaseURL)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}

	var tt timedText
	if err := xml.Unmarshal(raw, &tt); err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("parse transcript: %w", err)}
	}

	var parts []string
	for _, t := range tt.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Value))
		if line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty transcript for video %s", core.ErrTranscriptUnavailable, videoID)
	}

	title := videoTitleFromPage(page)
	if title == "" {
		title = "YouTube: " + in.URL
	}

	return []Document{{
		Text:  strings.Join(parts, " "),
		Title: title,
		Metadata: map[string]string{
			"url":      in.URL,
			"videoId":  videoID,
			"language": track.LanguageCode,
			"type":     "youtube",
		},
	}}, nil
}

func (e *YoutubeExtractor) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "infera-notebook/1.0")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// videoIDFromURL accepts watch, shorts and youtu.be forms.
func videoIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid youtube url %q: %w", raw, err)
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		if strings.HasPrefix(u.Path, "/shorts/") {
			if id := strings.TrimPrefix(u.Path, "/shorts/"); id != "" {
				return strings.Trim(id, "/"), nil
			}
		}
	}
	return "", fmt.Errorf("cannot determine video id from %q", raw)
}

// captionTracksFromPage pulls the captionTracks array out of the watch page's
// embedded player response.
func captionTracksFromPage(page []byte) []captionTrack {
	const marker = `"captionTracks":`
	s := string(page)
	i := strings.Index(s, marker)
	if i < 0 {
		return nil
	}
	rest := s[i+len(marker):]

	// Find the matching close bracket of the JSON array.
	depth := 0
	end := -1
	inString := false
	escaped := false
	for j := 0; j < len(rest); j++ {
		c := rest[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = j + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(rest[:end]), &tracks); err != nil {
		return nil
	}
	// Tracks without a fetchable URL are useless.
	kept := tracks[:0]
	for _, t := range tracks {
		if t.BaseURL != "" {
			kept = append(kept, t)
		}
	}
	return kept
}

func videoTitleFromPage(page []byte) string {
	s := string(page)
	start := strings.Index(s, "<title>")
	if start < 0 {
		return ""
	}
	start += len("<title>")
	end := strings.Index(s[start:], "</title>")
	if end < 0 {
		return ""
	}
	title := html.UnescapeString(s[start : start+end])
	title = strings.TrimSuffix(title, " - YouTube")
	return strings.TrimSpace(title)
}
