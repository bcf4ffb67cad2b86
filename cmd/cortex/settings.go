package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change user settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := current.svc.LoadSettings(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "set <json>",
	Short:   "Merge a JSON object into the settings",
	Example: `  cortex settings set '{"gridColumns": 4, "theme": "cortex-light"}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := current.svc.PatchSettings(cmd.Context(), []byte(args[0])); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Hand a bookmark over to the extension, or pick one up",
}

var pendingAddCmd = &cobra.Command{
	Use:   "add <url> [title]",
	Short: "Store a pending bookmark",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) == 2 {
			title = args[1]
		}
		p, err := current.svc.SetPendingBookmark(cmd.Context(), args[0], title)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pending: %s (expires in %s)\n", p.URL, current.cfg.Pending.TTL)
		return nil
	},
}

var pendingTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Move the pending bookmark into the quick add category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, ok, err := current.svc.TakePending(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing pending")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", b.Title, current.cfg.QuickAdd.Category)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	pendingCmd.AddCommand(pendingAddCmd, pendingTakeCmd)
	rootCmd.AddCommand(settingsCmd, pendingCmd)
}
