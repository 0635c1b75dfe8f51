// Package source fetches the episode catalog from the workspace API.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/soretetsu/discovery-go/internal/models"
)

// apiVersion is the workspace API version header value.
const apiVersion = "2022-06-28"

// pageFetchPause throttles sequential page-body fetches to stay under the
// workspace API rate limit.
const pageFetchPause = 300 * time.Millisecond

// Client talks to the workspace catalog API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// pause between body fetches, overridable in tests
	pause time.Duration
}

// New creates a catalog source client.
// If baseURL or token are empty, DISCOVERY_SOURCE_URL and
// DISCOVERY_SOURCE_TOKEN are used. Timeout can be configured via
// DISCOVERY_SOURCE_TIMEOUT (default 2m for full catalog syncs).
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("DISCOVERY_SOURCE_URL")
	}
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	if token == "" {
		token = os.Getenv("DISCOVERY_SOURCE_TOKEN")
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("DISCOVERY_SOURCE_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		pause: pageFetchPause,
	}
}

// richText is a workspace API rich text fragment.
type richText struct {
	PlainText string `json:"plain_text"`
}

// selectValue is a workspace API select option.
type selectValue struct {
	Name string `json:"name"`
}

// pageProperties carries the catalog columns of a database page.
type pageProperties struct {
	Name struct {
		Title []richText `json:"title"`
	} `json:"名前"`
	URL struct {
		URL string `json:"url"`
	} `json:"URL"`
	Summary struct {
		RichText []richText `json:"rich_text"`
	} `json:"概要"`
	Philosophers struct {
		MultiSelect []selectValue `json:"multi_select"`
	} `json:"哲学者"`
	Themes struct {
		MultiSelect []selectValue `json:"multi_select"`
	} `json:"テーマ"`
	EpisodeType struct {
		Select *selectValue `json:"select"`
	} `json:"エピソード種別"`
	Difficulty struct {
		Select *selectValue `json:"select"`
	} `json:"難易度"`
	Relevance struct {
		Select *selectValue `json:"select"`
	} `json:"ルディクレア関連度"`
}

// page is a database page in a query response.
type page struct {
	ID         string         `json:"id"`
	Properties pageProperties `json:"properties"`
}

// queryResponse is a database query response page.
type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// block is a content block in a page body.
type block struct {
	Type      string `json:"type"`
	Paragraph *struct {
		RichText []richText `json:"rich_text"`
	} `json:"paragraph"`
}

// blocksResponse is a block children response page.
type blocksResponse struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// FetchCatalog retrieves all episodes from the catalog database, in the
// database's natural order. Bodies are not fetched; use FetchBody per
// episode when transcript text is wanted.
func (c *Client) FetchCatalog(ctx context.Context, databaseID string) ([]models.Episode, error) {
	var episodes []models.Episode
	var cursor *string

	for {
		reqBody := map[string]any{"page_size": 100}
		if cursor != nil {
			reqBody["start_cursor"] = *cursor
		}

		var resp queryResponse
		path := fmt.Sprintf("/v1/databases/%s/query", databaseID)
		if err := c.do(ctx, http.MethodPost, path, reqBody, &resp); err != nil {
			return nil, fmt.Errorf("query catalog database: %w", err)
		}

		for _, p := range resp.Results {
			ep := pageToEpisode(p)
			if ep.Title == "" || ep.URL == "" {
				continue
			}
			ep.Position = len(episodes)
			episodes = append(episodes, ep)
		}

		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}

	return episodes, nil
}

// FetchBody retrieves the page body text for an episode, capped at
// models.MaxBodyChars.
func (c *Client) FetchBody(ctx context.Context, pageID string) (string, error) {
	var builder strings.Builder
	var cursor *string

	for {
		path := fmt.Sprintf("/v1/blocks/%s/children?page_size=100", pageID)
		if cursor != nil {
			path += "&start_cursor=" + *cursor
		}

		var resp blocksResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return "", fmt.Errorf("fetch page body: %w", err)
		}

		for _, b := range resp.Results {
			if b.Paragraph == nil {
				continue
			}
			for _, rt := range b.Paragraph.RichText {
				builder.WriteString(rt.PlainText)
			}
			builder.WriteString("\n")

			if builder.Len() >= models.MaxBodyChars {
				return truncateBody(builder.String()), nil
			}
		}

		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pause):
		}
	}

	return truncateBody(builder.String()), nil
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > models.MaxBodyChars {
		return body[:models.MaxBodyChars]
	}
	return body
}

// do sends a request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func pageToEpisode(p page) models.Episode {
	title := joinRichText(p.Properties.Name.Title)

	return models.Episode{
		ID:           strings.ReplaceAll(p.ID, "-", ""),
		Title:        title,
		URL:          p.Properties.URL.URL,
		Summary:      joinRichText(p.Properties.Summary.RichText),
		EpisodeType:  selectName(p.Properties.EpisodeType.Select),
		Difficulty:   models.ParseDifficulty(selectName(p.Properties.Difficulty.Select)),
		Relevance:    models.ParseRelevance(selectName(p.Properties.Relevance.Select)),
		Philosophers: selectNames(p.Properties.Philosophers.MultiSelect),
		Themes:       selectNames(p.Properties.Themes.MultiSelect),
		Casual:       strings.Contains(title, models.CasualMarker),
	}
}

func joinRichText(rts []richText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

func selectName(sv *selectValue) string {
	if sv == nil {
		return ""
	}
	return sv.Name
}

func selectNames(svs []selectValue) []string {
	names := make([]string, 0, len(svs))
	for _, sv := range svs {
		if sv.Name != "" {
			names = append(names, sv.Name)
		}
	}
	return names
}
