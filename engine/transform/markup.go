package transform

import "regexp"

// These patterns strip the coarsest wikitext markup before the
// normalization rewrite table runs. A full wikicode parser (templates,
// parser functions, nested links) is explicitly out of scope (SPEC_FULL.md
// §13) — the interface to the core (plain UTF-8 text in, plain UTF-8 text
// out) is what's specified, not the stripping algorithm itself.
var (
	templatePattern  = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	refPattern       = regexp.MustCompile(`(?s)<ref[^>]*>.*?</ref>|<ref[^>]*/>`)
	linkPipePattern  = regexp.MustCompile(`\[\[[^|\]]*\|([^\]]*)\]\]`)
	linkBarePattern  = regexp.MustCompile(`\[\[([^\]]*)\]\]`)
	boldItalicMarker = regexp.MustCompile(`'{2,5}`)
	headingMarker    = regexp.MustCompile(`(?m)^=+\s*(.*?)\s*=+$`)
	htmlCommentRE    = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// stripWikiMarkup runs templates and refs to nothing, keeps the display
// text of links, strips bold/italic quote-runs, and collapses heading
// markers to their plain text. Applied repeatedly to templatePattern
// because templates can nest one level deep around a single non-template
// payload.
func stripWikiMarkup(s string) string {
	s = htmlCommentRE.ReplaceAllString(s, "")
	s = refPattern.ReplaceAllString(s, "")
	for i := 0; i < 3; i++ {
		replaced := templatePattern.ReplaceAllString(s, "")
		if replaced == s {
			break
		}
		s = replaced
	}
	s = linkPipePattern.ReplaceAllString(s, "$1")
	s = linkBarePattern.ReplaceAllString(s, "$1")
	s = boldItalicMarker.ReplaceAllString(s, "")
	s = headingMarker.ReplaceAllString(s, "$1")
	return s
}
