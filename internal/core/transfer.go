package core

import (
	"context"
	"fmt"
	"io"

	"github.com/nikbrunner/cortex/internal/exporter"
	"github.com/nikbrunner/cortex/internal/importer"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/reconcile"
)

// ExportData builds a backup file of the stored categories and settings.
func (s *Service) ExportData(ctx context.Context) (exporter.File, error) {
	categories, err := s.LoadCategories(ctx)
	if err != nil {
		return exporter.File{}, err
	}
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return exporter.File{}, err
	}
	file, _, err := exporter.Export(categories, settings, s.now(), s.log)
	if err != nil {
		return exporter.File{}, fmt.Errorf("export: %w", err)
	}
	return file, nil
}

// ImportData reads and validates a backup file. It does not store anything;
// see RestoreData.
func (s *Service) ImportData(_ context.Context, f importer.File) (importer.Result, error) {
	res, err := importer.Import(f, s.log)
	if err != nil {
		return importer.Result{}, fmt.Errorf("import: %w", err)
	}
	return res, nil
}

// RestoreData imports a backup file and replaces the stored categories and,
// when the file carries them, the settings.
func (s *Service) RestoreData(ctx context.Context, f importer.File) (importer.Result, reconcile.Report, error) {
	res, err := s.ImportData(ctx, f)
	if err != nil {
		return importer.Result{}, reconcile.Report{}, err
	}
	report, err := s.SaveCategories(ctx, res.Categories)
	if err != nil {
		return res, report, err
	}
	if res.Settings != nil {
		if err := s.SaveSettings(ctx, *res.Settings); err != nil {
			return res, report, err
		}
	}
	s.log.Info("backup restored",
		logger.Int("categories", len(res.Categories)),
		logger.Bool("checksum_valid", res.ChecksumValid))
	return res, report, nil
}

// ExportThemes builds the custom themes file.
func (s *Service) ExportThemes(ctx context.Context) (exporter.File, error) {
	themes, err := s.LoadUserThemes(ctx)
	if err != nil {
		return exporter.File{}, err
	}
	return exporter.ExportThemes(themes, s.now())
}

// ImportThemes merges the themes of a theme file into the stored themes and
// returns the result.
func (s *Service) ImportThemes(ctx context.Context, r io.Reader) ([]model.Theme, error) {
	incoming, err := importer.ImportThemes(r)
	if err != nil {
		return nil, err
	}
	current, err := s.LoadUserThemes(ctx)
	if err != nil {
		return nil, err
	}
	merged := importer.MergeThemes(current, incoming)
	if err := s.SaveUserThemes(ctx, merged); err != nil {
		return nil, err
	}
	return s.LoadUserThemes(ctx)
}

// TreeImport summarizes ImportBrowserTree.
type TreeImport struct {
	Added   int
	Skipped int
	Report  reconcile.Report
}

// ImportBrowserTree adds every bookmark of an external bookmark tree. The
// folder path becomes the category name; URLs already stored are skipped.
func (s *Service) ImportBrowserTree(ctx context.Context, roots ...*importer.TreeNode) (TreeImport, error) {
	categories, err := s.LoadCategories(ctx)
	if err != nil {
		return TreeImport{}, err
	}
	merged, added, skipped := categories.ImportMerge(importer.Flatten(roots...))
	res := TreeImport{Added: added, Skipped: skipped}
	if added == 0 {
		return res, nil
	}
	if res.Report, err = s.SaveCategories(ctx, merged); err != nil {
		return res, err
	}
	s.log.Info("bookmark tree imported", logger.Int("added", added), logger.Int("skipped", skipped))
	return res, nil
}
