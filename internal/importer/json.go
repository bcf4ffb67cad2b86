// Package importer reads backup files, theme files and external bookmark
// trees back into cortex data.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nikbrunner/cortex/internal/exporter"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/secure"
	"github.com/nikbrunner/cortex/internal/validate"
)

// MaxFileSize is the largest accepted import file.
const MaxFileSize = 10 << 20

// JSONMediaType is the only accepted import media type.
const JSONMediaType = "application/json"

var (
	ErrFileTooLarge    = errors.New("file too large (max 10MB)")
	ErrInvalidFileType = errors.New("invalid file type, only JSON files are allowed")
	ErrMalformedJSON   = errors.New("malformed JSON")
	ErrValidation      = errors.New("invalid import data")
)

// ValidationError carries every structural problem found in an import file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Errors, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// File is an uploaded import file. Size may be -1 when unknown; the body is
// then cut off at MaxFileSize.
type File struct {
	Name string
	Type string
	Size int64
	Body io.Reader
}

// Result is the data recovered from a backup file.
type Result struct {
	Categories model.Categories
	// Settings is nil when the file carries none.
	Settings   *model.Settings
	Version    string
	ExportDate string

	ChecksumPresent bool
	ChecksumValid   bool
}

// Import reads and validates a backup file. Nothing is returned unless the
// whole file passes validation. A checksum mismatch is logged and tolerated.
func Import(f File, log logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Nop()
	}

	if f.Size > MaxFileSize {
		return Result{}, ErrFileTooLarge
	}
	if mt, _, err := mime.ParseMediaType(f.Type); err != nil || mt != JSONMediaType {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidFileType, f.Type)
	}
	if f.Body == nil {
		return Result{}, fmt.Errorf("%w: empty file", ErrMalformedJSON)
	}

	raw, err := readLimited(f.Body)
	if err != nil {
		return Result{}, err
	}
	return ImportBytes(raw, log)
}

// ImportBytes is Import for a body already in memory.
func ImportBytes(raw []byte, log logger.Logger) (Result, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !json.Valid(raw) {
		return Result{}, ErrMalformedJSON
	}

	if report := validate.ImportedData(raw); !report.IsValid {
		return Result{}, &ValidationError{Errors: report.Errors}
	}

	root := gjson.ParseBytes(raw)
	categoriesRaw := []byte(root.Get("categories").Raw)
	var settingsRaw []byte
	if s := root.Get("settings"); s.Exists() {
		settingsRaw = []byte(s.Raw)
	}

	res := Result{
		Version:    root.Get("version").String(),
		ExportDate: root.Get("exportDate").String(),
	}

	if sum := root.Get("checksum"); sum.Exists() && sum.String() != "" {
		res.ChecksumPresent = true
		computed, err := exporter.ChecksumRaw(categoriesRaw, settingsRaw)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		res.ChecksumValid = computed == sum.String()
		if !res.ChecksumValid {
			log.Warn("import checksum mismatch, data may be corrupted",
				logger.String("expected", sum.String()),
				logger.String("computed", computed))
		}
	}

	var categories model.Categories
	if err := secure.DecodeInto(categoriesRaw, &categories); err != nil {
		return Result{}, fmt.Errorf("%w: categories: %v", ErrMalformedJSON, err)
	}
	// The decoded value is what gets returned, so it is checked again. A
	// duplicated key can make it differ from the raw value checked above.
	var errs []string
	for i := range categories {
		if report := validate.Category(categories[i]); !report.IsValid {
			errs = append(errs, fmt.Sprintf("Category %d: %s", i+1, report.Joined()))
		}
	}
	if len(errs) > 0 {
		return Result{}, &ValidationError{Errors: errs}
	}
	res.Categories = categories

	if settingsRaw != nil && gjson.ParseBytes(settingsRaw).Type != gjson.Null {
		cloned, err := secure.CloneBytes(settingsRaw)
		if err != nil {
			return Result{}, fmt.Errorf("%w: settings: %v", ErrMalformedJSON, err)
		}
		data, err := json.Marshal(cloned)
		if err != nil {
			return Result{}, fmt.Errorf("encode settings: %w", err)
		}
		settings, err := model.MergeSettings(data)
		if err != nil {
			log.Warn("imported settings field ignored", logger.Error(err))
		}
		res.Settings = &settings
	}

	return res, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if len(raw) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return raw, nil
}
