package importer

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTMLTree parses Netscape bookmark HTML into a bookmark tree rooted at
// a node with RootID.
func ParseHTMLTree(r io.Reader) (*TreeNode, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	root := &TreeNode{ID: RootID}
	nextID := 1

	// Track current folder stack for hierarchy
	stack := []*TreeNode{root}
	var pendingFolder *TreeNode // folder waiting to be pushed on next DL

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name := getTextContent(n)
				if name != "" {
					parent := stack[len(stack)-1]
					folder := &TreeNode{ID: strconv.Itoa(nextID), Title: name}
					nextID++
					parent.Children = append(parent.Children, folder)

					// Pushed when we see the next DL
					pendingFolder = folder
				}
				return // Don't recurse into H3

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = href
				}

				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, &TreeNode{
					ID:    strconv.Itoa(nextID),
					Title: title,
					URL:   href,
					Tags:  splitTags(getAttr(n, "tags")),
				})
				nextID++
				return // Don't recurse into A

			case "dl":
				pushed := false
				if pendingFolder != nil {
					stack = append(stack, pendingFolder)
					pendingFolder = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					stack = stack[:len(stack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return root, nil
}

func splitTags(attr string) []string {
	var tags []string
	for _, t := range strings.Split(attr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
