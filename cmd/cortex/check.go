package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/culler"
	"github.com/nikbrunner/cortex/internal/model"
)

var checkRemove bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every bookmark URL and report the dead ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		categories, err := current.svc.LoadCategories(ctx)
		if err != nil {
			return err
		}
		var bookmarks []model.Bookmark
		for _, c := range categories {
			bookmarks = append(bookmarks, c.Bookmarks...)
		}
		if len(bookmarks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No bookmarks to check")
			return nil
		}

		errOut := cmd.ErrOrStderr()
		results := culler.CheckURLs(ctx, bookmarks, culler.Options{
			Concurrency:    current.cfg.Cull.Concurrency,
			Timeout:        current.cfg.Cull.Timeout,
			ExcludeDomains: current.cfg.Cull.ExcludeDomains,
			Logger:         current.log,
			OnProgress: func(completed, total int) {
				fmt.Fprintf(errOut, "\rChecked %d/%d", completed, total)
			},
		})
		fmt.Fprintln(errOut)

		out := cmd.OutOrStdout()
		for _, r := range results {
			if r.Status == culler.Healthy {
				continue
			}
			detail := r.Error
			if r.StatusCode != 0 {
				detail = fmt.Sprintf("HTTP %d", r.StatusCode)
			}
			fmt.Fprintf(out, "%-12s %d  %s  %s (%s)\n", r.Status, r.Bookmark.ID, r.Bookmark.Title, r.Bookmark.URL, detail)
		}

		dead := culler.DeadOnly(results)
		fmt.Fprintf(out, "%d of %d bookmarks dead\n", len(dead), len(results))
		if !checkRemove || len(dead) == 0 {
			return nil
		}

		_, err = current.svc.Mutate(ctx, func(cs model.Categories) (model.Categories, error) {
			for _, r := range dead {
				categoryID, b := cs.FindBookmark(r.Bookmark.ID)
				if b == nil {
					continue
				}
				if cs, err = cs.DeleteBookmark(categoryID, r.Bookmark.ID); err != nil {
					return nil, err
				}
			}
			return cs, nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d dead bookmarks\n", len(dead))
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkRemove, "remove", false, "delete the dead bookmarks")
	rootCmd.AddCommand(checkCmd)
}
