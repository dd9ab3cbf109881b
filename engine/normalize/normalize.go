// Package normalize implements the text-normalization rewrite table of
// SPEC_FULL.md §6.3. The table is closed, ordered, and contractual — it is
// grounded verbatim on original_source/semantic_search/functions/parsing.py
// (fix_bad_symbols, clean_newlines) and
// original_source/semantic_search/functions/wikipedia_extractor.py
// (remove_extra_sections, remove_thumbnails).
package normalize

import (
	"regexp"
	"strings"
)

// TrailingHeadings are the reserved section headings that truncate a
// document: the first occurrence of any of these drops everything from
// that point on.
var TrailingHeadings = []string{"See also", "References", "External links", "Notes"}

// ArtefactMarkers mark lines left over from table/figure wiki markup that
// must be dropped entirely.
var ArtefactMarkers = []string{`thumb|`, `scope="`, `rowspan="`, `style="`}

// LinePrefixes are reserved table-row prefixes stripped from the start of
// any surviving line, checked in this order.
var LinePrefixes = []string{"| ", "! ", "|-", "|}"}

// symbolFix is the closed, ordered substitution table. Order matters: later
// entries clean up artefacts left behind by earlier ones (e.g. the final
// double-space collapse only works because it runs last).
var symbolFix = []struct{ old, new string }{
	{"–", "-"},   // en dash
	{"(/", "("},
	{"/)", ")"},
	{"(, ", "("},
	{"( , ; ", "("},
	{" ", " "},   // non-breaking space
	{"′", "`"},   // prime
	{"(: ", "("},
	{"(; ", "("},
	{"( ", "("},
	{" )", ")"},
	{"皖", ""},    // stray CJK glyph left over from markup stripping
	{"()", ""},
	{"(;)", ""},
	{" ; ", "; "},
	{"(,", "("},
	{",)", ")"},
	{",),", ","},
	{",“", `, "`},
	{"( ;)", ""},
	{"(;", "("},
	{" .", "."},
	{";;", ";"},
	{";\n", "\n"},
	{" ,", ","},
	{",,", ","},
	{"−", "-"},   // minus sign
	{"۝ ", ""},   // Arabic end of ayah
	{"۝", ""},
	{"’", "'"},   // right single quote
	{"  ", " "},       // must run last: collapses double spaces left by the above
}

var newlineFold = regexp.MustCompile(`\n{3,}`)

// Normalize applies the rewrite table in its contractual order: trailing
// section strip, symbol fix, newline folding, artefact-line drop. The
// sequence repeats until the text stops changing (every rewrite only
// shortens the text, so this ends), which makes Normalize idempotent:
// Normalize(Normalize(s)) == Normalize(s) for all s.
func Normalize(s string) string {
	for {
		prev := s
		s = stripTrailingSections(s)
		s = fixSymbols(s)
		s = foldNewlines(s)
		s = dropArtefactLines(s)
		if s == prev {
			return s
		}
	}
}

func stripTrailingSections(s string) string {
	for _, heading := range TrailingHeadings {
		if idx := strings.Index(s, heading); idx >= 0 {
			s = s[:idx]
		}
	}
	return s
}

func fixSymbols(s string) string {
	for _, r := range symbolFix {
		s = strings.ReplaceAll(s, r.old, r.new)
	}
	return s
}

func foldNewlines(s string) string {
	return newlineFold.ReplaceAllString(s, "\n\n")
}

func dropArtefactLines(s string) string {
	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if containsAny(line, ArtefactMarkers) {
			continue
		}
		cleaned = append(cleaned, stripLinePrefix(line))
	}
	return strings.TrimRight(strings.Join(cleaned, "\n"), "\n")
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// stripLinePrefix mirrors the original line-by-line cleanup: leading space
// first, then each reserved table-row prefix in turn. These checks are
// independent, not mutually exclusive — a line can have its leading space
// and a row prefix both stripped.
func stripLinePrefix(line string) string {
	if len(line) > 1 && line[0] == ' ' {
		line = line[1:]
	}
	for _, prefix := range LinePrefixes {
		if strings.HasPrefix(line, prefix) {
			line = line[len(prefix):]
		}
	}
	return line
}
