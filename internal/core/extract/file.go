package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"code.sajari.com/docconv"

	"github.com/inferahq/infera/internal/core"
)

// FileExtractor handles uploaded files: PDF, DOC and DOCX through docconv,
// CSV with row-level granularity, JSON by flattening string values.
type FileExtractor struct{}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

func (e *FileExtractor) Extract(ctx context.Context, in Input) ([]Document, error) {
	mimeType := sniffMIME(in.ContentType, in.Data)

	switch mimeType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return e.extractDocconv(ctx, in, mimeType)
	case "text/csv":
		return e.extractCSV(in)
	case "application/json":
		return e.extractJSON(in)
	case "text/plain", "text/markdown":
		return []Document{{
			Text:     string(in.Data),
			Title:    in.URL,
			Metadata: map[string]string{"contentType": mimeType},
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedContentType, mimeType)
	}
}

func (e *FileExtractor) extractDocconv(ctx context.Context, in Input, mimeType string) ([]Document, error) {
	res, err := docconv.Convert(bytes.NewReader(in.Data), mimeType, false)
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docconvDocument(res, in, mimeType)
}

// docconvDocument maps a converted response to a single document. Title and
// page count live in the response's Meta map.
func docconvDocument(res *docconv.Response, in Input, mimeType string) ([]Document, error) {
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("empty document body (%s)", mimeType)}
	}

	meta := map[string]string{"contentType": mimeType}
	if pages, ok := res.Meta["PageCount"]; ok {
		meta["pageCount"] = pages
	}
	title := res.Meta["Title"]
	if title == "" {
		title = in.URL
	}
	return []Document{{Text: text, Title: title, Metadata: meta}}, nil
}

// extractCSV emits one document per data row, rendered as "header: value"
// lines the way the original CSV loader does.
func (e *FileExtractor) extractCSV(in Input) ([]Document, error) {
	r := csv.NewReader(bytes.NewReader(in.Data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("read csv header: %w", err)}
	}

	var docs []Document
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("read csv row %d: %w", row, err)}
		}

		var lines []string
		for i, val := range record {
			col := "column" + strconv.Itoa(i)
			if i < len(header) {
				col = header[i]
			}
			lines = append(lines, col+": "+val)
		}
		docs = append(docs, Document{
			Text:  strings.Join(lines, "\n"),
			Title: in.URL,
			Metadata: map[string]string{
				"contentType": "text/csv",
				"row":         strconv.Itoa(row),
			},
		})
		row++
	}
	if len(docs) == 0 {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("csv has no data rows")}
	}
	return docs, nil
}

// extractJSON flattens every scalar value reachable from the document root
// into "path: value" lines, depth first with sorted keys for determinism.
func (e *FileExtractor) extractJSON(in Input) ([]Document, error) {
	var root any
	if err := json.Unmarshal(in.Data, &root); err != nil {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("parse json: %w", err)}
	}

	var lines []string
	flattenJSON("", root, &lines)
	if len(lines) == 0 {
		return nil, &core.ExtractionError{SourceID: in.SourceID, Cause: fmt.Errorf("json has no scalar values")}
	}
	return []Document{{
		Text:     strings.Join(lines, "\n"),
		Title:    in.URL,
		Metadata: map[string]string{"contentType": "application/json"},
	}}, nil
}

func flattenJSON(path string, v any, out *[]string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinPath(path, k), val[k], out)
		}
	case []any:
		for i, item := range val {
			flattenJSON(joinPath(path, strconv.Itoa(i)), item, out)
		}
	case nil:
		// skip nulls
	default:
		*out = append(*out, fmt.Sprintf("%s: %v", path, val))
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// sniffMIME prefers the declared content type and falls back to sniffing the
// leading bytes.
func sniffMIME(declared string, data []byte) string {
	if declared != "" {
		// Strip parameters like "; charset=utf-8".
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		return strings.TrimSpace(declared)
	}
	return http.DetectContentType(data)
}
