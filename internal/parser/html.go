package parser

import (
	"regexp"
	"strings"
)

var (
	htmlHintRe = regexp.MustCompile(`(?i)<(?:!doctype|html|head|body|div|p|h[1-6]|ul|table)\b`)

	dropBlockRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
		regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
	}

	headingOpenRe  = regexp.MustCompile(`(?i)<h([1-6])[^>]*>`)
	headingCloseRe = regexp.MustCompile(`(?i)</h[1-6]>`)
	listItemRe     = regexp.MustCompile(`(?i)<li[^>]*>`)
	blockBreakRe   = regexp.MustCompile(`(?i)<(?:/p|br\s*/?|/div|/tr|/ul|/ol)[^>]*>`)
	anyTagRe       = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe     = regexp.MustCompile(`[ \t]+`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

func looksLikeHTML(raw []byte) bool {
	head := raw
	if len(head) > 2048 {
		head = head[:2048]
	}
	return htmlHintRe.Match(head)
}

// ExtractText reduces an HTML page to structure-preserving plain text:
// headings become markdown headings, list items become dashed bullets,
// block closers become line breaks. Scripts, styles, nav and footer blocks
// are removed entirely.
func ExtractText(html string) string {
	for _, re := range dropBlockRes {
		html = re.ReplaceAllString(html, "")
	}

	html = headingOpenRe.ReplaceAllString(html, "\n# ")
	html = headingCloseRe.ReplaceAllString(html, "\n")
	html = listItemRe.ReplaceAllString(html, "\n- ")
	html = blockBreakRe.ReplaceAllString(html, "\n")

	html = anyTagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	// Collapse horizontal whitespace and trim each line, keeping line
	// structure for the structural parsers.
	html = spaceRunRe.ReplaceAllString(html, " ")
	lines := strings.Split(html, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	html = strings.Join(lines, "\n")
	html = blankRunRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
