package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/picker"
	"github.com/nikbrunner/cortex/internal/search"
)

var searchCopy bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search bookmarks and open (or copy) the selected one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		categories, err := current.svc.LoadCategories(cmd.Context())
		if err != nil {
			return err
		}

		entries := search.Entries(categories)
		results := search.Fuzzy(entries, query)
		if len(results) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No bookmarks found for '%s'\n", query)
			return nil
		}

		var selected *search.Entry
		if len(results) == 1 {
			selected = &results[0].Entry
		} else {
			selected, err = picker.Run(entries, query)
			if err != nil {
				return fmt.Errorf("picker: %w", err)
			}
		}
		if selected == nil {
			return nil
		}

		if searchCopy {
			if err := clipboard.WriteAll(selected.Bookmark.URL); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied: %s\n", selected.Bookmark.URL)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening: %s\n", selected.Bookmark.Title)
		openURL(selected.Bookmark.URL)
		return nil
	},
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}

func init() {
	searchCmd.Flags().BoolVarP(&searchCopy, "copy", "c", false, "copy the URL instead of opening it")
	rootCmd.AddCommand(searchCmd)
}
