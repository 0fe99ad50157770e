package parser

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	groupedRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+`)
	digitsRe  = regexp.MustCompile(`\d+`)
	spaceRe   = regexp.MustCompile(`[\s\x{3000}]+`)
)

// ParsePriceText pulls the most likely intended integer out of a short price
// fragment. Parenthesized annotations such as day-over-day deltas ("(+117)")
// are stripped first, a comma-grouped numeral wins over a bare digit run, and
// every failure mode resolves to nil rather than an error.
func ParsePriceText(text string) *int {
	if text == "" {
		return nil
	}

	cleaned := parenRe.ReplaceAllString(strings.TrimSpace(text), "")

	if m := groupedRe.FindString(cleaned); m != "" {
		if v, err := strconv.Atoi(strings.ReplaceAll(m, ",", "")); err == nil {
			return &v
		}
		return nil
	}

	if m := digitsRe.FindString(cleaned); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			return &v
		}
	}

	return nil
}

// NormalizeText folds full-width characters to their half-width forms and
// collapses whitespace runs, including the ideographic space, to single
// ASCII spaces. The production page mixes both widths freely, so this runs
// before any marker or size-token matching.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	folded := width.Fold.String(text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(folded, " "))
}
