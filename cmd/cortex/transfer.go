package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/cortex/internal/exporter"
	"github.com/nikbrunner/cortex/internal/importer"
)

var (
	importDryRun bool
	feedLink     string
)

// writeFile writes f to path, or to ~/Downloads under its own name when
// path is empty.
func writeFile(cmd *cobra.Command, path string, f exporter.File) error {
	if path == "" {
		var err error
		if path, err = exporter.DefaultExportPath(f.Name); err != nil {
			return fmt.Errorf("default export path: %w", err)
		}
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write a JSON backup of categories and settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := current.svc.ExportData(cmd.Context())
		if err != nil {
			return err
		}
		return writeFile(cmd, optionalArg(args), f)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Restore a JSON backup, replacing the stored categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			return err
		}
		f := importer.File{
			Name: filepath.Base(args[0]),
			Type: mime.TypeByExtension(filepath.Ext(args[0])),
			Size: info.Size(),
			Body: file,
		}

		out := cmd.OutOrStdout()
		if importDryRun {
			res, err := current.svc.ImportData(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Valid backup: %d categories, exported %s\n", len(res.Categories), res.ExportDate)
			return nil
		}

		res, report, err := current.svc.RestoreData(cmd.Context(), f)
		if err != nil {
			return err
		}
		if res.ChecksumPresent && !res.ChecksumValid {
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning: checksum mismatch, the file may have been modified")
		}
		fmt.Fprintf(out, "Restored %d categories (%d writes)\n", len(res.Categories), report.Writes())
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, "%d bookmarks could not be written\n", len(report.Skipped))
		}
		return nil
	},
}

var importHTMLCmd = &cobra.Command{
	Use:   "import-html <bookmarks.html>",
	Short: "Import a Netscape bookmark file exported by a browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		root, err := importer.ParseHTMLTree(file)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		res, err := current.svc.ImportBrowserTree(cmd.Context(), root)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bookmarks", res.Added)
		if res.Skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d duplicates skipped)", res.Skipped)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

var exportHTMLCmd = &cobra.Command{
	Use:   "export-html [path]",
	Short: "Export bookmarks as a Netscape bookmark file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := current.svc.LoadCategories(cmd.Context())
		if err != nil {
			return err
		}
		return writeFile(cmd, optionalArg(args), exporter.File{
			Name: exporter.HTMLFilename(time.Now()),
			Data: []byte(exporter.ExportHTML(categories)),
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed [path]",
	Short: "Render bookmarks as an Atom feed (stdout when no path is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := current.svc.LoadCategories(cmd.Context())
		if err != nil {
			return err
		}
		atom, err := exporter.Feed(categories, exporter.FeedOptions{Link: feedLink})
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = io.WriteString(cmd.OutOrStdout(), atom)
			return err
		}
		return os.WriteFile(args[0], []byte(atom), 0o644)
	},
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Export or import custom themes",
}

var themesExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the custom themes file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := current.svc.ExportThemes(cmd.Context())
		if err != nil {
			return err
		}
		return writeFile(cmd, optionalArg(args), f)
	},
}

var themesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Merge a custom themes file into the stored themes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		themes, err := current.svc.ImportThemes(cmd.Context(), file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d custom themes stored\n", len(themes))
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to delete all data without --yes")
		}
		if err := current.svc.ClearAllData(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate the file without storing it")
	feedCmd.Flags().StringVar(&feedLink, "link", "", "link of the feed itself")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	themesCmd.AddCommand(themesExportCmd, themesImportCmd)
	rootCmd.AddCommand(exportCmd, importCmd, importHTMLCmd, exportHTMLCmd, feedCmd, themesCmd, clearCmd)
}
