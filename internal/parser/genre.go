package parser

import (
	"regexp"
	"strings"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

var (
	mdHeadingRe    = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	colonHeadingRe = regexp.MustCompile(`^([A-Za-z][\w&/' -]{1,60}):\s*$`)
	bulletRe       = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	charsInlineRe  = regexp.MustCompile(`(?i)^characteristics\s*[:\-]\s*(.*)$`)
)

// Page sections that are navigation or boilerplate, not genres.
var skipHeadings = map[string]bool{
	"contents":       true,
	"overview":       true,
	"introduction":   true,
	"references":     true,
	"see also":       true,
	"external links": true,
	"genres":         true,
	"genre list":     true,
}

// parseGenres extracts genre records from headed lists: each heading starts
// a genre, following prose is its description, and bullet items (or an
// inline "Characteristics:" list) are its characteristics.
func parseGenres(sourceURL, text string) []model.GenreRecord {
	var (
		records []model.GenreRecord
		current *model.GenreRecord
		desc    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(desc, " "))
		if current.Description != "" || len(current.Characteristics) > 0 {
			records = append(records, *current)
		}
		current = nil
		desc = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// "Characteristics:" lines look like colon headings; match them first.
		if m := charsInlineRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.Characteristics = appendCharacteristics(current.Characteristics, splitList(m[1])...)
			}
			continue
		}

		if name, ok := headingText(line); ok {
			flush()
			if skipHeadings[strings.ToLower(name)] {
				continue
			}
			current = &model.GenreRecord{Name: name, SourceURL: sourceURL}
			continue
		}

		if current == nil {
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if cm := charsInlineRe.FindStringSubmatch(item); cm != nil {
				current.Characteristics = appendCharacteristics(current.Characteristics, splitList(cm[1])...)
			} else {
				current.Characteristics = appendCharacteristics(current.Characteristics, item)
			}
			continue
		}

		desc = append(desc, line)
	}
	flush()

	return records
}

// headingText returns the heading name when the line is a markdown heading
// or a short "Name:" section header.
func headingText(line string) (string, bool) {
	if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := colonHeadingRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// splitList splits a comma- or semicolon-separated inline list.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// appendCharacteristics appends items, skipping duplicates case-insensitively.
func appendCharacteristics(existing []string, items ...string) []string {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c)] = true
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[strings.ToLower(item)] {
			continue
		}
		seen[strings.ToLower(item)] = true
		existing = append(existing, item)
	}
	return existing
}
