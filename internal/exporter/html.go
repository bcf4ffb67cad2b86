package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/cortex/internal/model"
)

// DefaultExportPath returns ~/Downloads/<name>.
func DefaultExportPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads", name), nil
}

// HTMLFilename returns cortex-bookmarks-YYYY-MM-DD.html.
func HTMLFilename(now time.Time) string {
	return fmt.Sprintf("cortex-bookmarks-%s.html", now.Format("2006-01-02"))
}

// ExportHTML exports the categories to Netscape bookmark HTML format, one
// folder per category. Tags are written to the TAGS attribute.
func ExportHTML(categories model.Categories) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, c := range categories {
		fmt.Fprintf(&b, "    <DT><H3>%s</H3>\n", html.EscapeString(c.Name))
		b.WriteString("    <DL><p>\n")
		for _, bm := range c.Bookmarks {
			// Ids are creation times in milliseconds.
			fmt.Fprintf(&b, "        <DT><A HREF=\"%s\" ADD_DATE=\"%d\"", html.EscapeString(bm.URL), bm.ID/1000)
			if len(bm.Tags) > 0 {
				fmt.Fprintf(&b, " TAGS=\"%s\"", html.EscapeString(strings.Join(bm.Tags, ",")))
			}
			fmt.Fprintf(&b, ">%s</A>\n", html.EscapeString(bm.Title))
		}
		b.WriteString("    </DL><p>\n")
	}

	b.WriteString("</DL><p>\n")
	return b.String()
}
