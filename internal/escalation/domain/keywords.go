// Package domain provides the escalation domain logic: keyword detection
// on job descriptions used to decide whether a job's effective level
// should be raised.
package domain

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// snippetRadius is how many characters of context surround a matched
// keyword in the reported snippet.
const snippetRadius = 30

type keywordTable struct {
	Levels []struct {
		Level    int      `yaml:"level"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"levels"`
}

// compiledKeyword is one table entry ready for matching. Single words carry
// a word-boundary pattern; phrases match as plain substrings.
type compiledKeyword struct {
	keyword string
	level   int
	pattern *regexp.Regexp
}

var compiledKeywords = mustCompileKeywords(keywordsYAML)

func mustCompileKeywords(raw []byte) []compiledKeyword {
	var table keywordTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		panic(fmt.Sprintf("escalation: invalid keyword table: %v", err))
	}

	compiled := make([]compiledKeyword, 0)
	for _, level := range table.Levels {
		for _, keyword := range level.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			entry := compiledKeyword{keyword: keyword, level: level.Level}
			if !strings.Contains(keyword, " ") {
				entry.pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
			}
			compiled = append(compiled, entry)
		}
	}
	// Highest level first so the trigger scan stops at the right tier.
	sort.SliceStable(compiled, func(i, j int) bool { return compiled[i].level > compiled[j].level })
	return compiled
}

// KeywordMatch is one keyword found in the checked text.
type KeywordMatch struct {
	Keyword string `json:"keyword"`
	Level   int    `json:"level"`
	Snippet string `json:"snippet"`
}

// Detection is the outcome of scanning a text against the keyword table.
// Every match is reported; only keywords of the highest matched level
// trigger an escalation, and only when that level exceeds currentLevel.
type Detection struct {
	Matches         []KeywordMatch `json:"matches"`
	ShouldEscalate  bool           `json:"shouldEscalate"`
	ToLevel         int            `json:"toLevel,omitempty"`
	TriggerKeywords []string       `json:"triggerKeywords,omitempty"`
}

// Detect scans text for escalation keywords relative to the job's current
// task level. Pure; no persistence.
func Detect(text string, currentLevel int) Detection {
	lowered := strings.ToLower(text)

	detection := Detection{Matches: make([]KeywordMatch, 0)}
	highest := 0

	for _, entry := range compiledKeywords {
		var index int
		if entry.pattern != nil {
			loc := entry.pattern.FindStringIndex(lowered)
			if loc == nil {
				continue
			}
			index = loc[0]
		} else {
			index = strings.Index(lowered, entry.keyword)
			if index < 0 {
				continue
			}
		}

		detection.Matches = append(detection.Matches, KeywordMatch{
			Keyword: entry.keyword,
			Level:   entry.level,
			Snippet: snippet(text, index, len(entry.keyword)),
		})
		if entry.level > highest {
			highest = entry.level
		}
	}

	if highest > currentLevel {
		detection.ShouldEscalate = true
		detection.ToLevel = highest
		for _, match := range detection.Matches {
			if match.Level == highest {
				detection.TriggerKeywords = append(detection.TriggerKeywords, match.Keyword)
			}
		}
	}
	return detection
}

func snippet(text string, index, length int) string {
	start := index - snippetRadius
	if start < 0 {
		start = 0
	}
	end := index + length + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	out := strings.TrimSpace(text[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(text) {
		out += "…"
	}
	return out
}
