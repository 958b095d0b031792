package document

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/httpclient"
)

// Entry is the JSON shape served by the blog entry API.
type Entry struct {
	EntryID     int64            `json:"entryId"`
	Content     string           `json:"content"`
	FrontMatter EntryFrontMatter `json:"frontMatter"`
}

type EntryFrontMatter struct {
	Title   string  `json:"title"`
	Summary *string `json:"summary,omitempty"`
}

// HTTPStore fetches entries from GET {BaseURL}/entries/{id}.
type HTTPStore struct {
	BaseURL string
	Client  *http.Client
}

var _ Fetcher = (*HTTPStore)(nil)

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *HTTPStore) FetchDocument(ctx context.Context, id string) (*Document, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, fmt.Errorf("entry id must be numeric, got %q", id)
	}
	endpoint := s.BaseURL + "/entries/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = httpclient.Default()
	}
	body, resp, err := httpclient.DoAndReadLimit(client, req, 2*MaxDocumentBytes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.New(apperrors.KindTransient, "Entry API request failed due to a temporary network error.", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	case resp.StatusCode >= 500:
		return nil, apperrors.New(apperrors.KindTransient, fmt.Sprintf("Entry API server error (%d).", resp.StatusCode), fmt.Errorf("status %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Entry API error (%d).", resp.StatusCode), fmt.Errorf("status %s", resp.Status))
	}

	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Entry API response format was invalid.", fmt.Errorf("failed to decode entry: %w", err))
	}
	return entry.Document(id), nil
}

// Document converts the entry; Render will emit a front matter holding only
// title and summary.
func (e Entry) Document(id string) *Document {
	return &Document{
		ID:      id,
		Title:   e.FrontMatter.Title,
		Summary: e.FrontMatter.Summary,
		Content: e.Content,
	}
}
