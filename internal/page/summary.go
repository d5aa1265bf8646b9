// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package page

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jeranaias/monkai/internal/util"
)

// Summary limits.
const (
	MaxDepth     = 3
	MaxChildren  = 20
	MaxTextRunes = 100
)

// summarizedAttrs are copied into the summary, in this order.
var summarizedAttrs = []string{"href", "src", "type", "value"}

// textAtoms are the elements whose text content is included.
var textAtoms = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.A: true, atom.Button: true, atom.Label: true,
}

// Summarize renders doc as the indented outline sent to the model, headed by
// the page title and URL. The walk starts at <body>.
func Summarize(doc *html.Node, title, pageURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Page: %s\nURL: %s\n\nDOM Structure:\n", title, pageURL)
	if root := findElement(doc, atom.Body); root != nil {
		writeElement(&sb, root, 0)
	}
	return sb.String()
}

// Title returns the trimmed text of the document's <title>.
func Title(doc *html.Node) string {
	n := findElement(doc, atom.Title)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(textContent(n))
}

func writeElement(sb *strings.Builder, n *html.Node, depth int) {
	if depth > MaxDepth || n.Type != html.ElementNode {
		return
	}
	indent := strings.Repeat("  ", depth)

	sb.WriteString(indent)
	sb.WriteByte('<')
	sb.WriteString(n.Data)
	if id := attr(n, "id"); id != "" {
		sb.WriteString("#" + id)
	}
	if classes := strings.Fields(attr(n, "class")); len(classes) > 0 {
		sb.WriteString("." + strings.Join(classes, "."))
	}
	for _, name := range summarizedAttrs {
		if v, ok := lookupAttr(n, name); ok {
			fmt.Fprintf(sb, " %s=\"%s\"", name, v)
		}
	}
	sb.WriteString(">\n")

	if textAtoms[n.DataAtom] {
		if text := util.FirstRunes(strings.TrimSpace(textContent(n)), MaxTextRunes); text != "" {
			fmt.Fprintf(sb, "%s  \"%s\"\n", indent, text)
		}
	}

	count := 0
	for c := n.FirstChild; c != nil && count < MaxChildren; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		count++
		writeElement(sb, c, depth+1)
	}

	fmt.Fprintf(sb, "%s</%s>\n", indent, n.Data)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}
