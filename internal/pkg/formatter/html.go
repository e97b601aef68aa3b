package formatter

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "table": true, "ul": true, "ol": true, "section": true, "header": true, "footer": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "head": true,
}

// FromHTML flattens an HTML fragment into paragraphs: one per block element,
// list items prefixed with "- " and table cells joined with ": ".
func FromHTML(docTitle, src string) (Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	doc := Document{Title: docTitle}
	var line strings.Builder

	flush := func() {
		if text := strings.Join(strings.Fields(line.String()), " "); text != "" {
			doc.Paragraphs = append(doc.Paragraphs, text)
		}
		line.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			switch n.Data {
			case "br":
				flush()
				return
			case "td", "th":
				if strings.TrimSpace(line.String()) != "" {
					line.WriteString(": ")
				}
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
			if n.Data == "li" {
				line.WriteString("- ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()

	return doc, nil
}
