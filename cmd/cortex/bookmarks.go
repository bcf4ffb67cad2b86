package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/model"
)

var addTags []string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories and their bookmarks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := current.svc.LoadCategories(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range categories {
			marker := ""
			if c.IsCollapsed {
				marker = " (collapsed)"
			}
			fmt.Fprintf(out, "%s [%d]%s\n", c.Name, len(c.Bookmarks), marker)
			for _, b := range c.Bookmarks {
				fmt.Fprintf(out, "  %d  %s  %s", b.ID, b.Title, b.URL)
				if len(b.Tags) > 0 {
					fmt.Fprintf(out, "  #%s", strings.Join(b.Tags, " #"))
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <category> <url> [title]",
	Short: "Add a bookmark, creating the category when missing",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) == 3 {
			title = args[2]
		}
		b, err := current.svc.AddBookmark(cmd.Context(), args[0], args[1], title, addTags)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%d) to %s\n", b.Title, b.ID, args[0])
		return nil
	},
}

var (
	editTitle string
	editURL   string
	editTags  []string
)

var editCmd = &cobra.Command{
	Use:   "edit <bookmark-id>",
	Short: "Change the title, URL or tags of a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var u model.BookmarkUpdate
		if cmd.Flags().Changed("title") {
			u.Title = &editTitle
		}
		if cmd.Flags().Changed("url") {
			u.URL = &editURL
		}
		if cmd.Flags().Changed("tag") {
			u.Tags = editTags
		}
		_, err = current.svc.Mutate(cmd.Context(), func(cs model.Categories) (model.Categories, error) {
			categoryID, b := cs.FindBookmark(id)
			if b == nil {
				return cs, model.ErrBookmarkNotFound
			}
			return cs.UpdateBookmark(categoryID, id, u)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d\n", id)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <bookmark-id>",
	Short: "Delete a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, err = current.svc.Mutate(cmd.Context(), func(cs model.Categories) (model.Categories, error) {
			categoryID, b := cs.FindBookmark(id)
			if b == nil {
				return cs, model.ErrBookmarkNotFound
			}
			return cs.DeleteBookmark(categoryID, id)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := current.svc.LoadCategories(cmd.Context())
		if err != nil {
			return err
		}
		for _, tag := range categories.AllTags() {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

var untagCmd = &cobra.Command{
	Use:   "untag <tag>",
	Short: "Remove a tag from every bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.svc.Mutate(cmd.Context(), func(cs model.Categories) (model.Categories, error) {
			return cs.DeleteTagFromAll(args[0]), nil
		})
		return err
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	addCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "tag to attach (repeatable)")

	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editURL, "url", "", "new URL")
	editCmd.Flags().StringSliceVarP(&editTags, "tag", "t", nil, "replace the tags (repeatable)")

	rootCmd.AddCommand(listCmd, addCmd, editCmd, rmCmd, tagsCmd, untagCmd)
}
