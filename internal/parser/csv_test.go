package parser

import (
	"strings"
	"testing"

	"github.com/soretetsu/discovery-go/internal/models"
)

const sampleCSV = "名前,URL,概要,哲学者,テーマ,エピソード種別,難易度,ルディクレア関連度\n" +
	"カントの自由論,https://example.com/1,自由意志について,カント,\"自由, 時間\",本編,入門,高\n" +
	"雑談回 近況報告,https://example.com/2,最近の話,,,雑談,,低\n" +
	",https://example.com/3,タイトルなし,,,,,\n" +
	"ニーチェ入門,,URLなし,,,,,\n"

func TestParseCatalog(t *testing.T) {
	episodes, skipped, err := ParseCatalog(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}

	if skipped != 2 {
		t.Errorf("Expected 2 skipped rows, got %d", skipped)
	}
	if len(episodes) != 2 {
		t.Fatalf("Expected 2 episodes, got %d", len(episodes))
	}

	first := episodes[0]
	if first.Title != "カントの自由論" {
		t.Errorf("Title mismatch: %q", first.Title)
	}
	if first.Difficulty != models.DifficultyBeginner {
		t.Errorf("Expected beginner difficulty, got %q", first.Difficulty)
	}
	if first.Relevance != models.RelevanceHigh {
		t.Errorf("Expected high relevance, got %q", first.Relevance)
	}
	if len(first.Philosophers) != 1 || first.Philosophers[0] != "カント" {
		t.Errorf("Philosophers mismatch: %v", first.Philosophers)
	}
	if len(first.Themes) != 2 || first.Themes[0] != "自由" || first.Themes[1] != "時間" {
		t.Errorf("Themes mismatch: %v", first.Themes)
	}
	if first.Casual {
		t.Error("First episode should not be casual")
	}
	if first.Position != 0 {
		t.Errorf("Expected position 0, got %d", first.Position)
	}

	second := episodes[1]
	if !second.Casual {
		t.Error("Episode with 雑談 in title should be casual")
	}
	if second.Position != 1 {
		t.Errorf("Expected position 1, got %d", second.Position)
	}
	if second.Difficulty != models.DifficultyIntermediate {
		t.Errorf("Empty difficulty should default to intermediate, got %q", second.Difficulty)
	}
}

func TestParseCatalogEnglishHeader(t *testing.T) {
	csv := "Name,URL,Summary,Philosophers,Themes,Episode Type,Difficulty,Relevance\n" +
		"Intro to Stoicism,https://example.com/en/1,Stoic basics,セネカ,幸福,main,advanced,medium\n"

	episodes, skipped, err := ParseCatalog(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("Expected no skipped rows, got %d", skipped)
	}
	if len(episodes) != 1 {
		t.Fatalf("Expected 1 episode, got %d", len(episodes))
	}
	if episodes[0].Difficulty != models.DifficultyAdvanced {
		t.Errorf("Difficulty mismatch: %q", episodes[0].Difficulty)
	}
	if episodes[0].Relevance != models.RelevanceMedium {
		t.Errorf("Relevance mismatch: %q", episodes[0].Relevance)
	}
}

func TestParseCatalogBOMHeader(t *testing.T) {
	csv := "\uFEFF名前,URL\nテスト回,https://example.com/bom\n"

	episodes, _, err := ParseCatalog(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("Expected 1 episode, got %d", len(episodes))
	}
}

func TestParseCatalogMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no title", "URL,概要\n"},
		{"no url", "名前,概要\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseCatalog(strings.NewReader(tt.header)); err == nil {
				t.Error("Expected error for missing required column")
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"カント", []string{"カント"}},
		{"カント, ニーチェ", []string{"カント", "ニーチェ"}},
		{"自由、時間、死", []string{"自由", "時間", "死"}},
		{"a,,b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := SplitTags(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("SplitTags(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitTags(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEpisodeIDStable(t *testing.T) {
	a := EpisodeID("https://example.com/1")
	b := EpisodeID("https://example.com/1")
	c := EpisodeID("https://example.com/2")
	if a != b {
		t.Error("EpisodeID should be deterministic")
	}
	if a == c {
		t.Error("Different URLs should produce different IDs")
	}
	if len(a) != 16 {
		t.Errorf("Expected 16-char ID, got %d chars", len(a))
	}
}
