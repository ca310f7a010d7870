package textproc

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips markup from a passage fragment, decodes entities and
// collapses runs of whitespace. Text without markup passes through trimmed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return collapseSpace(b.String())
			}
			// Malformed fragment: keep what we decoded so far.
			return collapseSpace(b.String())
		case html.StartTagToken:
			tok := z.Token()
			if isSkipped(tok.DataAtom) {
				skip++
			}
			if tok.DataAtom == atom.Br {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			tok := z.Token()
			if isSkipped(tok.DataAtom) && skip > 0 {
				skip--
			}
		case html.SelfClosingTagToken:
			if z.Token().DataAtom == atom.Br {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isSkipped(a atom.Atom) bool {
	return a == atom.Script || a == atom.Style
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
