package weave

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// markdownToHTML renders a woven markdown document as a standalone HTML
// page. Raw HTML in the prose, including the chunk anchors, is kept.
func markdownToHTML(doc []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	root := md.Parser().Parse(text.NewReader(doc))

	var body bytes.Buffer
	if err := md.Renderer().Render(&body, doc, root); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if title := headingTitle(root, doc); title != "" {
		fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	}
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// headingTitle returns the text of the first top-level heading.
func headingTitle(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			return inlineText(h, src)
		}
	}
	return ""
}

// inlineText gets the text content of a goldmark AST node.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(c.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}

// Title finds a document title in woven output: the <title> or first <h1>
// of HTML, or the first heading of markdown. It returns "" when the
// markup has neither.
func Title(m *Markup, doc []byte) string {
	switch m.Extension {
	case ".html":
		return htmlTitle(doc)
	case ".md":
		return headingTitle(goldmark.New().Parser().Parse(text.NewReader(doc)), doc)
	}
	return ""
}

func htmlTitle(doc []byte) string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return ""
	}
	if t := findElement(root, "title"); t != nil {
		return textContent(t)
	}
	if h := findElement(root, "h1"); h != nil {
		return textContent(h)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
