package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is the subset of tree querying the extractor needs. Every lookup
// reports absence explicitly instead of returning an empty value.
type Node interface {
	SelectAll(selector string) []Node
	SelectOne(selector string) (Node, bool)
	Attr(name string) (string, bool)
	Text() (string, bool)
	HasClass(class string) bool
}

// FromDocument wraps a goquery document as a Node.
func FromDocument(doc *goquery.Document) Node {
	return FromSelection(doc.Selection)
}

// FromSelection wraps a goquery selection as a Node.
func FromSelection(s *goquery.Selection) Node {
	return selection{s: s}
}

type selection struct {
	s *goquery.Selection
}

func (n selection) SelectAll(selector string) []Node {
	found := n.s.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selection{s: s})
	})
	return nodes
}

func (n selection) SelectOne(selector string) (Node, bool) {
	found := n.s.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selection{s: found}, true
}

func (n selection) Attr(name string) (string, bool) {
	v, ok := n.s.Attr(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Text returns the element's text with runs of whitespace collapsed.
func (n selection) Text() (string, bool) {
	text := normalizeSpace(n.s.Text())
	return text, text != ""
}

func (n selection) HasClass(class string) bool {
	return n.s.HasClass(class)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lookup chains optional descents into a node; once a step misses, every
// later step misses too.
type lookup struct {
	node Node
	ok   bool
}

func from(n Node) lookup {
	return lookup{node: n, ok: n != nil}
}

func (l lookup) find(selector string) lookup {
	if !l.ok {
		return l
	}
	n, ok := l.node.SelectOne(selector)
	return lookup{node: n, ok: ok}
}

func (l lookup) attr(name string) *string {
	if !l.ok {
		return nil
	}
	v, ok := l.node.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

func (l lookup) text() *string {
	if !l.ok {
		return nil
	}
	v, ok := l.node.Text()
	if !ok {
		return nil
	}
	return &v
}
