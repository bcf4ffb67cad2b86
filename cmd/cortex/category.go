package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/model"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

// categoryOp builds a subcommand that looks a category up by name and
// applies op to the tree.
func categoryOp(use, short string, nargs int, op func(cs model.Categories, id int64, args []string) (model.Categories, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := current.svc.Mutate(cmd.Context(), func(cs model.Categories) (model.Categories, error) {
				c := cs.FindByName(args[0])
				if c == nil {
					return cs, fmt.Errorf("%w: %s", model.ErrCategoryNotFound, args[0])
				}
				return op(cs, c.ID, args[1:])
			})
			return err
		},
	}
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an empty category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.svc.Mutate(cmd.Context(), func(cs model.Categories) (model.Categories, error) {
			if cs.FindByName(args[0]) != nil {
				return cs, fmt.Errorf("category %q already exists", args[0])
			}
			out, _ := cs.AddCategory(args[0])
			return out, nil
		})
		return err
	},
}

func init() {
	categoryCmd.AddCommand(
		categoryAddCmd,
		categoryOp("rm <name>", "Delete a category and its bookmarks", 1,
			func(cs model.Categories, id int64, _ []string) (model.Categories, error) {
				return cs.DeleteCategory(id)
			}),
		categoryOp("rename <name> <new-name>", "Rename a category", 2,
			func(cs model.Categories, id int64, args []string) (model.Categories, error) {
				return cs.RenameCategory(id, args[0])
			}),
		categoryOp("up <name>", "Move a category up", 1,
			func(cs model.Categories, id int64, _ []string) (model.Categories, error) {
				return cs.MoveUp(id)
			}),
		categoryOp("down <name>", "Move a category down", 1,
			func(cs model.Categories, id int64, _ []string) (model.Categories, error) {
				return cs.MoveDown(id)
			}),
		categoryOp("toggle <name>", "Collapse or expand a category", 1,
			func(cs model.Categories, id int64, _ []string) (model.Categories, error) {
				return cs.ToggleCollapsed(id)
			}),
	)
	rootCmd.AddCommand(categoryCmd)
}
