// Package vocab provides the closed tag vocabularies used for query filtering.
//
// Philosophers and themes form two externally-defined, closed enumerations.
// Episodes are normalized against them at ingestion, and queries are filtered
// against them defensively before matching: unknown values are silently
// dropped, never treated as errors.
package vocab

import "sort"

// Vocabulary is a closed set of valid tag values.
type Vocabulary struct {
	values map[string]struct{}
	sorted []string
}

// New builds a vocabulary from the given values. Duplicates are collapsed.
func New(values []string) *Vocabulary {
	v := &Vocabulary{values: make(map[string]struct{}, len(values))}
	for _, s := range values {
		if s == "" {
			continue
		}
		if _, ok := v.values[s]; !ok {
			v.values[s] = struct{}{}
			v.sorted = append(v.sorted, s)
		}
	}
	sort.Strings(v.sorted)
	return v
}

// Contains reports whether the value is part of the vocabulary.
func (v *Vocabulary) Contains(value string) bool {
	_, ok := v.values[value]
	return ok
}

// Filter returns the subset of values that belong to the vocabulary,
// preserving input order and collapsing duplicates.
func (v *Vocabulary) Filter(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, s := range values {
		if !v.Contains(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Values returns the vocabulary entries in sorted order.
func (v *Vocabulary) Values() []string {
	out := make([]string, len(v.sorted))
	copy(out, v.sorted)
	return out
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	return len(v.values)
}

// DefaultPhilosophers is the built-in philosopher vocabulary, matching the
// selectable keywords shipped with the catalog frontend. A deployment can
// override it via the vocabulary config file.
func DefaultPhilosophers() *Vocabulary {
	return New([]string{
		"アウグスティヌス", "アリストテレス", "アーノルド・ミンデル", "アーレント",
		"ウィトゲンシュタイン", "エピクロス", "カント", "キルケゴール",
		"サルトル", "シェリング", "ショーペンハウアー", "ジョン・ロック",
		"スピノザ", "ソクラテス", "ディオゲネス", "デカルト", "デリダ",
		"トマス・アクィナス", "ドゥルーズ", "ナーガールジュナ", "ニーチェ",
		"ハイデガー", "バタイユ", "ヒューム", "ピエール・アド", "フィヒテ",
		"フッサール", "ブッダ", "プラトン", "ヘーゲル", "ホワイトヘッド",
		"マルクス", "ライプニッツ", "レヴィナス", "レヴィ＝ストロース",
		"一遍", "九鬼周造", "栄西", "空海", "朱熹", "法然", "王陽明",
		"和辻哲郎", "西田幾多郎", "親鸞", "老子", "荘子", "道元",
	})
}

// DefaultThemes is the built-in theme vocabulary.
func DefaultThemes() *Vocabulary {
	return New([]string{
		"存在論", "認識論", "倫理学", "言語哲学", "時間・生成",
		"自由・意志", "関係・他者", "美・創造", "死・無常", "日常・実践",
		"心・意識", "社会・政治", "宗教・信仰", "科学・技術", "意味・価値",
		"西洋", "仏教", "日本哲学",
	})
}
