// Package parser reads episode catalog exports into catalog records.
package parser

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/soretetsu/discovery-go/internal/models"
)

// Column aliases accepted in the export header. Catalog exports come from a
// Japanese workspace, so the Japanese names are the primary form.
var columnAliases = map[string]string{
	"name":          "title",
	"名前":            "title",
	"title":         "title",
	"url":           "url",
	"summary":       "summary",
	"概要":            "summary",
	"哲学者":           "philosophers",
	"philosophers":  "philosophers",
	"テーマ":           "themes",
	"themes":        "themes",
	"エピソード種別":       "episode_type",
	"episode type":  "episode_type",
	"episode_type":  "episode_type",
	"難易度":           "difficulty",
	"difficulty":    "difficulty",
	"ルディクレア関連度":     "relevance",
	"relevance":     "relevance",
}

// ParseCatalog reads a catalog CSV export and returns episodes in row order.
// Rows without a title or URL are skipped; the second return value is the
// number of skipped rows.
func ParseCatalog(r io.Reader) ([]models.Episode, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int)
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF")))
		if name, ok := columnAliases[key]; ok {
			columns[name] = i
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, 0, fmt.Errorf("header has no title column: %v", header)
	}
	if _, ok := columns["url"]; !ok {
		return nil, 0, fmt.Errorf("header has no url column: %v", header)
	}

	var episodes []models.Episode
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		title := cell("title")
		url := cell("url")
		if title == "" || url == "" {
			skipped++
			continue
		}

		episodes = append(episodes, models.Episode{
			ID:           EpisodeID(url),
			Title:        title,
			URL:          url,
			Summary:      cell("summary"),
			EpisodeType:  cell("episode_type"),
			Difficulty:   models.ParseDifficulty(cell("difficulty")),
			Relevance:    models.ParseRelevance(cell("relevance")),
			Philosophers: SplitTags(cell("philosophers")),
			Themes:       SplitTags(cell("themes")),
			Casual:       strings.Contains(title, models.CasualMarker),
			Position:     len(episodes),
		})
	}

	return episodes, skipped, nil
}

// EpisodeID derives a stable record ID from the episode URL.
func EpisodeID(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:8])
}

// SplitTags splits a multi-select export cell into individual tags.
// Both ASCII and Japanese commas appear in exports.
func SplitTags(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return []string{}
	}

	normalized := strings.ReplaceAll(cell, "、", ",")
	parts := strings.Split(normalized, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
