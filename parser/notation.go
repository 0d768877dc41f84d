// Package parser holds the pure text and markup logic of the scraper:
// transcoding ability text into bracket notation, reading the card detail
// view, and parsing result-header counts.
package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Icon classification classes mapped to bracket marks. Elemental marks take
// priority over special marks when an icon carries several classes.
var elementMarks = map[string]string{
	"fire":      "F",
	"ice":       "I",
	"wind":      "W",
	"earth":     "E",
	"lightning": "L",
	"water":     "A",
	"light":     "Lt",
	"dark":      "D",
	"darkness":  "D",
}

// The site ships several class spellings for the tap marker.
var specialMarks = map[string]string{
	"dull":     "Dull",
	"tap":      "Dull",
	"down":     "Dull",
	"special":  "S",
	"ex-burst": "EX",
	"crystal":  "C",
}

// TranscodeFragment parses an HTML fragment and returns its ability text in
// bracket notation.
func TranscodeFragment(fragment string) (string, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	return Transcode(root), nil
}

// Transcode walks a parsed fragment depth-first and renders its ability text
// in bracket notation: icon markers become bracket tokens ([F], [2], [Dull]),
// italicized spans become *emphasized* text, and line breaks become spaces.
// The result is passed through Normalize.
func Transcode(n *html.Node) string {
	var b strings.Builder
	walk(n, &b)
	return Normalize(b.String())
}

func walk(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "br":
			b.WriteString(" ")
			return
		case hasClass(n, "icon"):
			b.WriteString(iconMark(n))
			return
		case isItalic(n):
			b.WriteString("*")
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, b)
			}
			b.WriteString("*")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
}

// iconMark renders an icon element as a bracket token. Numeric cost markers
// carry a "num" class and bracket their own text; everything else is looked
// up by classification class, falling back to the first non-generic class.
func iconMark(n *html.Node) string {
	classes := classList(n)
	if containsString(classes, "num") {
		if txt := strings.TrimSpace(textContent(n)); txt != "" {
			return "[" + txt + "]"
		}
	}
	for _, c := range classes {
		if m, ok := elementMarks[c]; ok {
			return "[" + m + "]"
		}
	}
	for _, c := range classes {
		if m, ok := specialMarks[c]; ok {
			return "[" + m + "]"
		}
	}
	for _, c := range classes {
		if c != "icon" && c != "num" {
			return "[" + c + "]"
		}
	}
	return ""
}

func isItalic(n *html.Node) bool {
	return n.Data == "i" || n.Data == "em" || hasClass(n, "italic")
}

func classList(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	return containsString(classList(n), class)
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

var (
	primingRE    = regexp.MustCompile(`\*\s*(Priming[^*\[]*?)\s*\*\s*[:;,.–—-]*\s*((?:\[[^\[\]]+\])(?:\s*\[[^\[\]]+\])*)`)
	limitBreakRE = regexp.MustCompile(`(\*\s*Limit Break)\s*(?:--|–|—)\s*`)
	spaceRE      = regexp.MustCompile(`\s+`)
)

// Normalize cleans up transcoded ability text: the closing asterisk of a
// "*Priming <name>*" span is moved past the cost brackets that follow it,
// the dash inside "*Limit Break -- N*" is dropped, whitespace runs collapse
// to single spaces, and the ends are trimmed. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = primingRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := primingRE.FindStringSubmatch(m)
		return "*" + sub[1] + " " + sub[2] + "*"
	})
	s = limitBreakRE.ReplaceAllString(s, "$1 ")
	s = spaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
