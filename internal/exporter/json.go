package exporter

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/secure"
	"github.com/nikbrunner/cortex/internal/validate"
)

// File is a generated download.
type File struct {
	Name string
	Data []byte
}

// BackupFilename returns cortex-backup-<unix-ms>.json.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("cortex-backup-%d.json", now.UnixMilli())
}

// ThemesFilename returns cortex-custom-themes-<unix-ms>.json.
func ThemesFilename(now time.Time) string {
	return fmt.Sprintf("cortex-custom-themes-%d.json", now.UnixMilli())
}

// Export builds a backup file. Categories failing validation are left out
// and logged; the export itself never fails because of them.
func Export(categories model.Categories, settings model.Settings, now time.Time, log logger.Logger) (File, model.ImportPayload, error) {
	if log == nil {
		log = logger.Nop()
	}

	valid := make(model.Categories, 0, len(categories))
	for _, c := range categories {
		if r := validate.Category(c); !r.IsValid {
			log.Warn("category excluded from export",
				logger.Int64("id", c.ID),
				logger.String("name", c.Name),
				logger.Strings("errors", r.Errors))
			continue
		}
		valid = append(valid, c)
	}

	var cloned model.Settings
	if err := secure.Into(settings, &cloned); err != nil {
		return File{}, model.ImportPayload{}, fmt.Errorf("clone settings: %w", err)
	}

	sum, err := Checksum(valid, &cloned)
	if err != nil {
		return File{}, model.ImportPayload{}, err
	}

	payload := model.ImportPayload{
		Categories: valid,
		Settings:   &cloned,
		Version:    model.ExportVersion,
		ExportDate: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Checksum:   sum,
	}
	data, err := encode(payload, true)
	if err != nil {
		return File{}, model.ImportPayload{}, err
	}
	return File{Name: BackupFilename(now), Data: data}, payload, nil
}

// ExportThemes builds the custom themes file, a JSON array of themes.
func ExportThemes(themes []model.Theme, now time.Time) (File, error) {
	if themes == nil {
		themes = []model.Theme{}
	}
	data, err := encode(themes, true)
	if err != nil {
		return File{}, err
	}
	return File{Name: ThemesFilename(now), Data: data}, nil
}

// Checksum is the SHA-256 hex digest of the compact JSON text
// {"categories":...,"settings":...}. A nil settings is left out.
func Checksum(categories model.Categories, settings *model.Settings) (string, error) {
	if categories == nil {
		categories = model.Categories{}
	}
	cats, err := encode(categories, false)
	if err != nil {
		return "", err
	}
	var set []byte
	if settings != nil {
		if set, err = encode(settings, false); err != nil {
			return "", err
		}
	}
	return ChecksumRaw(cats, set)
}

// ChecksumRaw computes the checksum from the raw JSON text of the two
// values, keeping their key order. A nil settings is left out.
func ChecksumRaw(categories, settings []byte) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"categories":`)
	if err := json.Compact(&buf, categories); err != nil {
		return "", fmt.Errorf("checksum categories: %w", err)
	}
	if settings != nil {
		buf.WriteString(`,"settings":`)
		if err := json.Compact(&buf, settings); err != nil {
			return "", fmt.Errorf("checksum settings: %w", err)
		}
	}
	buf.WriteByte('}')

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// encode marshals v without HTML escaping so the bytes match what a browser
// JSON.stringify would produce.
func encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
