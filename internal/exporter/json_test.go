package exporter_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cortex/internal/exporter"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
)

var exportTime = time.Date(2024, 5, 1, 10, 30, 0, 250_000_000, time.UTC)

func sampleCategories() model.Categories {
	return model.Categories{
		{ID: 1, Name: "Dev", Order: 0, Bookmarks: []model.Bookmark{
			{ID: 10, Title: "Go <docs> & more", URL: "https://go.dev", Tags: []string{"go"}, CategoryID: 1},
		}},
		{ID: 2, Name: "News", Order: 1, Bookmarks: []model.Bookmark{}},
	}
}

func TestExport(t *testing.T) {
	settings := model.DefaultSettings()
	settings.TagColors["go"] = "#00ADD8"

	file, payload, err := exporter.Export(sampleCategories(), settings, exportTime, logger.Nop())
	assert.NilError(t, err)

	assert.Check(t, is.Equal(file.Name, "cortex-backup-1714559400250.json"))
	assert.Check(t, is.Equal(payload.Version, model.ExportVersion))
	assert.Check(t, is.Equal(payload.ExportDate, "2024-05-01T10:30:00.250Z"))
	assert.Check(t, is.Len(payload.Categories, 2))
	assert.Check(t, is.Len(payload.Checksum, 64))

	// No HTML escaping, so the file text matches the checksum input.
	assert.Check(t, is.Contains(string(file.Data), "Go <docs> & more"))
	assert.Check(t, strings.HasPrefix(string(file.Data), "{\n  \"categories\""))

	var decoded model.ImportPayload
	assert.NilError(t, json.Unmarshal(file.Data, &decoded))
	assert.Check(t, is.DeepEqual(decoded, payload))
}

func TestExport_DropsInvalidCategories(t *testing.T) {
	categories := sampleCategories()
	categories = append(categories, model.Category{ID: 3, Name: "", Bookmarks: []model.Bookmark{}})

	_, payload, err := exporter.Export(categories, model.DefaultSettings(), exportTime, nil)
	assert.NilError(t, err)
	assert.Check(t, is.Len(payload.Categories, 2))

	want, err := exporter.Checksum(sampleCategories(), payload.Settings)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(payload.Checksum, want))
}

func TestChecksum(t *testing.T) {
	settings := model.DefaultSettings()

	a, err := exporter.Checksum(sampleCategories(), &settings)
	assert.NilError(t, err)
	b, err := exporter.Checksum(sampleCategories(), &settings)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(a, b))

	changed := sampleCategories()
	changed[0].Bookmarks[0].Title = "Go"
	c, err := exporter.Checksum(changed, &settings)
	assert.NilError(t, err)
	assert.Check(t, a != c)

	withoutSettings, err := exporter.Checksum(sampleCategories(), nil)
	assert.NilError(t, err)
	assert.Check(t, a != withoutSettings)
}

func TestChecksumRaw_IgnoresWhitespace(t *testing.T) {
	compact, err := exporter.ChecksumRaw([]byte(`[{"id":1}]`), []byte(`{"theme":"x"}`))
	assert.NilError(t, err)
	spaced, err := exporter.ChecksumRaw([]byte("[\n  { \"id\": 1 }\n]"), []byte("{ \"theme\" : \"x\" }"))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(compact, spaced))

	_, err = exporter.ChecksumRaw([]byte(`[`), nil)
	assert.Check(t, is.ErrorContains(err, "checksum categories"))
}

func TestExportThemes(t *testing.T) {
	themes := []model.Theme{{Name: "Ocean", Type: model.ThemeDark, Bg: "#000000"}}

	file, err := exporter.ExportThemes(themes, exportTime)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(file.Name, "cortex-custom-themes-1714559400250.json"))

	var decoded []model.Theme
	assert.NilError(t, json.Unmarshal(file.Data, &decoded))
	assert.Check(t, is.DeepEqual(decoded, themes))

	empty, err := exporter.ExportThemes(nil, exportTime)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(empty.Data), "[]"))
}
