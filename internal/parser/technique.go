package parser

import (
	"regexp"
	"strings"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

var (
	numberedRe = regexp.MustCompile(`^(?:\d{1,3}|[A-Z])[.)]\s+(.+)$`)
	exampleRe  = regexp.MustCompile(`(?i)^(?:e\.g\.|examples?)\s*[:\-]\s*(.*)$`)
)

// parseTechniques extracts production-technique sections. A section starts
// at a markdown heading or a numbered/lettered line ("1. Use tempo tags",
// "A) Layering"); following prose is the body, and "Example:" lines or
// bullets under an examples marker collect usage examples.
func parseTechniques(sourceURL, text string) []model.TechniqueRecord {
	var (
		records    []model.TechniqueRecord
		current    *model.TechniqueRecord
		body       []string
		inExamples bool
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, " "))
		if current.Body != "" || len(current.Examples) > 0 {
			records = append(records, *current)
		}
		current = nil
		body = nil
		inExamples = false
	}

	startSection := func(title string) {
		flush()
		if skipHeadings[strings.ToLower(title)] {
			return
		}
		current = &model.TechniqueRecord{Title: title, SourceURL: sourceURL}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// "Examples:" lines look like colon headings; match them first.
		if m := exampleRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				inExamples = true
				if ex := strings.TrimSpace(m[1]); ex != "" {
					current.Examples = append(current.Examples, ex)
				}
			}
			continue
		}

		if name, ok := headingText(line); ok {
			startSection(name)
			continue
		}
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			startSection(strings.TrimSpace(m[1]))
			continue
		}

		if current == nil {
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if inExamples {
				current.Examples = append(current.Examples, item)
			} else {
				body = append(body, item)
			}
			continue
		}

		inExamples = false
		body = append(body, line)
	}
	flush()

	return records
}
