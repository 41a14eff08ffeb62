package ledger

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-somas/internal/analysis"
)

var markdown = goldmark.New()

// headingPrefix strips "Modul:", "5." and similar lead-ins from a heading.
var headingPrefix = regexp.MustCompile(`^(?:MODUL\s*[:\-]\s*|\d+\s*[.)]\s*)+`)

// DetectModule returns the vocabulary module used as a section heading in
// completion. Markdown headings are checked first, then bare lines such as
// "KRITIK" or "**ZITATE:**". It never guesses: no match returns false.
func DetectModule(completion string, vocab analysis.Vocabulary) (analysis.Module, bool) {
	src := []byte(completion)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var found analysis.Module
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if m, ok := matchHeading(inlineText(h, src), vocab); ok {
			found = m
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	if found != "" {
		return found, true
	}

	return matchLines(completion, vocab)
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

func matchHeading(heading string, vocab analysis.Vocabulary) (analysis.Module, bool) {
	name := strings.ToUpper(strings.TrimSpace(heading))
	name = headingPrefix.ReplaceAllString(name, "")
	name = strings.TrimRight(name, ": ")
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(name))

	m := analysis.Module(name)
	if vocab.Contains(m) {
		return m, true
	}
	return "", false
}

func matchLines(completion string, vocab analysis.Vocabulary) (analysis.Module, bool) {
	for _, line := range strings.Split(completion, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "#*_ ")
		if line == "" || len(line) > 64 {
			continue
		}
		if m, ok := matchHeading(strings.Trim(line, "*_ "), vocab); ok {
			return m, true
		}
	}
	return "", false
}
