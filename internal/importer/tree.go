package importer

import (
	"strings"

	"github.com/nikbrunner/cortex/internal/model"
)

// RootID marks the synthetic root of a bookmark tree. Its title never
// becomes part of a category path.
const RootID = "0"

// DefaultCategory receives bookmarks found outside any folder.
const DefaultCategory = "Imported"

// ImportedTag is attached to every bookmark brought in from a tree.
const ImportedTag = "imported"

// TreeNode is one node of an external bookmark tree. Nodes with a URL are
// bookmarks; nodes with children are folders.
type TreeNode struct {
	ID       string      `json:"id,omitempty"`
	Title    string      `json:"title"`
	URL      string      `json:"url,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Flatten turns the trees into import entries. Each bookmark lands in the
// category named by its folder path joined with "/".
func Flatten(roots ...*TreeNode) []model.ImportEntry {
	var out []model.ImportEntry
	for _, r := range roots {
		out = flatten(r, nil, out)
	}
	return out
}

func flatten(n *TreeNode, path []string, out []model.ImportEntry) []model.ImportEntry {
	if n == nil {
		return out
	}

	if n.URL != "" {
		category := DefaultCategory
		if len(path) > 0 {
			category = strings.Join(path, "/")
		}
		title := n.Title
		if title == "" {
			title = "Untitled"
		}
		out = append(out, model.ImportEntry{
			Category: category,
			Title:    title,
			URL:      n.URL,
			Tags:     append([]string{ImportedTag}, n.Tags...),
		})
	}

	if len(n.Children) > 0 {
		next := path
		if n.Title != "" && n.ID != RootID {
			next = append(append([]string{}, path...), n.Title)
		}
		for _, c := range n.Children {
			out = flatten(c, next, out)
		}
	}
	return out
}
