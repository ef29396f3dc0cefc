package parser

import (
	"regexp"
	"strings"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

// tagLineRe matches lines carrying a bracket tag, optionally as a bullet
// item and optionally followed by a separator and description, e.g.
// "- [melancholic] — a wistful, sorrowful mood".
var tagLineRe = regexp.MustCompile(`^(?:[-*+]\s+)?\[([^\[\]\n]+)\]\s*(?:[-–—:]\s*)?(.*)$`)

// parseMetaTags extracts bracket-tag records. Headings above a run of tag
// lines name the category ("Mood", "Structure", ...); tags before any
// heading fall into "general".
func parseMetaTags(sourceURL, text string) []model.MetaTagRecord {
	var records []model.MetaTagRecord
	seen := make(map[string]bool)
	category := "general"

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if name, ok := headingText(line); ok {
			category = strings.ToLower(strings.TrimSpace(name))
			continue
		}

		m := tagLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		inner := strings.TrimSpace(m[1])
		if inner == "" {
			continue
		}
		tag := "[" + inner + "]"
		if seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true

		records = append(records, model.MetaTagRecord{
			Tag:         tag,
			Category:    category,
			Description: strings.TrimSpace(m[2]),
			SourceURL:   sourceURL,
		})
	}

	return records
}
