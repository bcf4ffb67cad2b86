package core_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cortex/internal/config"
	"github.com/nikbrunner/cortex/internal/core"
	"github.com/nikbrunner/cortex/internal/importer"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Data.Dir = t.TempDir()
	cfg.Fallback.Backend = config.BackendFile
	cfg.Pending.TTL = 10 * time.Second
	cfg.Browser.BlockedPrefixes = config.DefaultBlockedPrefixes
	cfg.QuickAdd.Category = "Read Later"
	return cfg
}

func openService(t *testing.T, cfg *config.Config, c *clock) *core.Service {
	t.Helper()
	opts := core.Options{Config: cfg}
	if c != nil {
		opts.Now = c.now
	}
	svc, err := core.Open(context.Background(), opts)
	assert.NilError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func sample() model.Categories {
	return model.Categories{
		{ID: 1, Name: "Dev", Order: 0, Bookmarks: []model.Bookmark{
			{ID: 10, Title: "Go", URL: "https://go.dev/", Tags: []string{"go"}, CategoryID: 1},
		}},
		{ID: 2, Name: "News", Order: 1, Bookmarks: []model.Bookmark{}},
	}
}

func TestLoadCategories_DefaultWhenEmpty(t *testing.T) {
	svc := openService(t, testConfig(t), nil)

	got, err := svc.LoadCategories(context.Background())
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, model.Categories{model.DefaultCategory()}))
}

func TestSaveAndLoadCategories(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)

	report, err := svc.SaveCategories(ctx, sample())
	assert.NilError(t, err)
	assert.Check(t, is.Equal(report.CategoriesAdded, 2))
	assert.Check(t, is.Equal(report.BookmarksAdded, 1))

	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, sample()))
}

func TestSaveCategories_SanitizesAndDropsInvalid(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)

	categories := sample()
	categories[0].Name = "  <Dev>  "
	categories[0].Bookmarks = append(categories[0].Bookmarks,
		model.Bookmark{ID: 11, Title: "bad", URL: "javascript:alert(1)", Tags: []string{}})
	categories = append(categories, model.Category{ID: 3, Name: "", Bookmarks: []model.Bookmark{}})

	_, err := svc.SaveCategories(ctx, categories)
	assert.NilError(t, err)

	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 2))
	assert.Check(t, is.Equal(got[0].Name, "Dev"))
	assert.Check(t, is.Len(got[0].Bookmarks, 1))
}

func TestLoadCategories_FallsBackToMirror(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	kv := storage.NewFileKV(cfg.KVPath())
	assert.NilError(t, kv.Set(ctx, map[string][]byte{
		storage.KeyCategories: []byte(`[
			{"id": 5, "name": "Saved", "order": 0, "isCollapsed": false, "bookmarks": []},
			{"id": 0, "name": "broken", "bookmarks": []}
		]`),
	}))

	svc := openService(t, cfg, nil)
	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, model.Categories{
		{ID: 5, Name: "Saved", Bookmarks: []model.Bookmark{}},
	}))
}

func TestLoadCategories_FallbackChecksDecodedRecord(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	kv := storage.NewFileKV(cfg.KVPath())
	assert.NilError(t, kv.Set(ctx, map[string][]byte{
		storage.KeyCategories: []byte(`[
			{"id": 5, "name": "Saved", "bookmarks": []},
			{"id": 6, "name": "Work", "name": "x onclick=alert(1)", "bookmarks": []}
		]`),
	}))

	svc := openService(t, cfg, nil)
	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, model.Categories{
		{ID: 5, Name: "Saved", Bookmarks: []model.Bookmark{}},
	}))
}

func TestSettings_MergeOnLoad(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)

	got, err := svc.PatchSettings(ctx, []byte(`{"theme":"nord"}`))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got.Theme, "nord"))

	loaded, err := svc.LoadSettings(ctx)
	assert.NilError(t, err)
	want := model.DefaultSettings()
	want.Theme = "nord"
	assert.Check(t, is.DeepEqual(loaded, want))
}

func TestSettings_FallbackWhenPrimaryEmpty(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	kv := storage.NewFileKV(cfg.KVPath())
	assert.NilError(t, kv.Set(ctx, map[string][]byte{storage.KeySettings: []byte(`{"gridColumns":5}`)}))

	svc := openService(t, cfg, nil)
	got, err := svc.LoadSettings(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got.GridColumns, 5))
	assert.Check(t, is.Equal(got.Language, "en"))
}

func TestPatchSettings_RejectsNonObject(t *testing.T) {
	svc := openService(t, testConfig(t), nil)
	_, err := svc.PatchSettings(context.Background(), []byte(`"dark"`))
	assert.Check(t, is.ErrorContains(err, "settings must be an object"))
	assert.Check(t, is.ErrorIs(err, model.ErrInvalidSettings))
}

func TestSettings_BadStoredFieldKeepsOtherChoices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	kv := storage.NewFileKV(cfg.KVPath())
	assert.NilError(t, kv.Set(ctx, map[string][]byte{
		storage.KeySettings: []byte(`{"gridColumns":"4","theme":"nord","language":"de"}`),
	}))

	svc := openService(t, cfg, nil)
	got, err := svc.LoadSettings(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got.Theme, "nord"))
	assert.Check(t, is.Equal(got.Language, "de"))
	assert.Check(t, is.Equal(got.GridColumns, model.DefaultSettings().GridColumns))
}

func TestPatchSettings_WrongTypeIsInvalid(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)
	_, err := svc.PatchSettings(ctx, []byte(`{"theme":"nord"}`))
	assert.NilError(t, err)

	_, err = svc.PatchSettings(ctx, []byte(`{"gridColumns":"4","theme":"dracula"}`))
	assert.Check(t, is.ErrorIs(err, model.ErrInvalidSettings))
	assert.Check(t, is.ErrorContains(err, "gridColumns"))

	got, err := svc.LoadSettings(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(got.Theme, "nord"))
}

func validTheme(name string) model.Theme {
	return model.Theme{
		Name: name, Type: model.ThemeDark,
		Bg: "#000000", BgSecondary: "#111111", Card: "#222222", CardHover: "#333333",
		Border: "#444444", BorderHover: "#555555", Text: "#ffffff", TextSecondary: "#eeeeee",
		Accent: "#ff0000",
	}
}

func TestUserThemes(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)

	bad := validTheme("Broken")
	bad.Accent = "red"
	assert.NilError(t, svc.SaveUserThemes(ctx, []model.Theme{validTheme("Ocean Deep"), bad, validTheme("Amber")}))

	got, err := svc.LoadUserThemes(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, []model.Theme{validTheme("Amber"), validTheme("Ocean Deep")}))

	assert.NilError(t, svc.SaveUserThemes(ctx, []model.Theme{validTheme("Amber")}))
	got, err = svc.LoadUserThemes(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Len(got, 1))
}

func TestImportThemes_MergesByName(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)
	assert.NilError(t, svc.SaveUserThemes(ctx, []model.Theme{validTheme("Ocean")}))

	replaced := validTheme("ocean")
	replaced.Accent = "#00ff00"
	file := `[` + themeJSON(t, replaced) + `,` + themeJSON(t, validTheme("Forest")) + `,{"name":"x"}]`

	got, err := svc.ImportThemes(ctx, strings.NewReader(file))
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 2))
	assert.Check(t, is.Equal(got[1].Accent, "#00ff00"))

	_, err = svc.ImportThemes(ctx, strings.NewReader(`{"name":"x"}`))
	assert.Check(t, is.ErrorIs(err, importer.ErrInvalidThemeFile))
	_, err = svc.ImportThemes(ctx, strings.NewReader(`[{"name":"x"}]`))
	assert.Check(t, is.ErrorIs(err, importer.ErrNoValidThemes))
}

func TestPendingBookmark(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	svc := openService(t, testConfig(t), c)

	_, err := svc.SetPendingBookmark(ctx, "https://example.com", "")
	assert.NilError(t, err)

	c.t = c.t.Add(5 * time.Second)
	got, ok, err := svc.CheckPendingBookmark(ctx)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Check(t, is.DeepEqual(got, model.Bookmark{Title: "Untitled", URL: "https://example.com", Tags: []string{}}))

	_, ok, err = svc.CheckPendingBookmark(ctx)
	assert.NilError(t, err)
	assert.Check(t, !ok, "pending bookmark delivered twice")
}

func TestPendingBookmark_Expires(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	svc := openService(t, testConfig(t), c)

	_, err := svc.SetPendingBookmark(ctx, "https://example.com", "Example")
	assert.NilError(t, err)

	c.t = c.t.Add(10 * time.Second)
	_, ok, err := svc.CheckPendingBookmark(ctx)
	assert.NilError(t, err)
	assert.Check(t, !ok)
}

type fakeTabs struct {
	tab core.Tab
	err error
}

func (f fakeTabs) ActiveTab(context.Context) (core.Tab, error) { return f.tab, f.err }

func TestCaptureTab(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)

	_, ok, err := svc.CaptureTab(ctx, fakeTabs{tab: core.Tab{URL: "chrome://settings", Title: "Settings"}})
	assert.NilError(t, err)
	assert.Check(t, !ok)

	_, _, err = svc.CaptureTab(ctx, fakeTabs{err: errors.New("no window")})
	assert.Check(t, is.ErrorContains(err, "no window"))

	p, ok, err := svc.CaptureTab(ctx, fakeTabs{tab: core.Tab{URL: "https://go.dev/", Title: "Go"}})
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(p.Title, "Go"))

	b, ok, err := svc.TakePending(ctx)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(b.URL, "https://go.dev/"))

	categories, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, categories.FindByName("Read Later") != nil)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)
	_, err := svc.SaveCategories(ctx, sample())
	assert.NilError(t, err)
	_, err = svc.PatchSettings(ctx, []byte(`{"gridColumns":4}`))
	assert.NilError(t, err)

	file, err := svc.ExportData(ctx)
	assert.NilError(t, err)
	assert.Check(t, strings.HasPrefix(file.Name, "cortex-backup-"))

	other := openService(t, testConfig(t), nil)
	res, _, err := other.RestoreData(ctx, importer.File{
		Name: file.Name,
		Type: "application/json",
		Size: int64(len(file.Data)),
		Body: bytes.NewReader(file.Data),
	})
	assert.NilError(t, err)
	assert.Check(t, res.ChecksumValid)

	got, err := other.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, sample()))
	settings, err := other.LoadSettings(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(settings.GridColumns, 4))
}

func TestImportBrowserTree(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)
	_, err := svc.SaveCategories(ctx, sample())
	assert.NilError(t, err)

	tree := &importer.TreeNode{ID: "0", Children: []*importer.TreeNode{
		{ID: "1", Title: "Bookmarks Bar", Children: []*importer.TreeNode{
			{ID: "2", Title: "Go again", URL: "https://go.dev/"},
			{ID: "3", Title: "Tools", Children: []*importer.TreeNode{
				{ID: "4", Title: "", URL: "https://example.com/"},
			}},
		}},
		{ID: "5", Title: "Loose", URL: "https://loose.example/"},
	}}

	res, err := svc.ImportBrowserTree(ctx, tree)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(res.Added, 2))
	assert.Check(t, is.Equal(res.Skipped, 1))

	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	tools := got.FindByName("Bookmarks Bar/Tools")
	assert.Assert(t, tools != nil)
	assert.Check(t, is.Equal(tools.Bookmarks[0].Title, "Untitled"))
	assert.Check(t, is.DeepEqual(tools.Bookmarks[0].Tags, []string{"imported"}))
	assert.Check(t, got.FindByName("Imported") != nil)
}

func TestClearAllData(t *testing.T) {
	ctx := context.Background()
	svc := openService(t, testConfig(t), nil)
	_, err := svc.SaveCategories(ctx, sample())
	assert.NilError(t, err)
	_, err = svc.PatchSettings(ctx, []byte(`{"theme":"nord"}`))
	assert.NilError(t, err)

	assert.NilError(t, svc.ClearAllData(ctx))

	got, err := svc.LoadCategories(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, model.Categories{model.DefaultCategory()}))
	settings, err := svc.LoadSettings(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(settings, model.DefaultSettings()))
}

func TestOpen_NoneBackendKeepsPendingInMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Fallback.Backend = config.BackendNone
	svc := openService(t, cfg, nil)

	_, err := svc.SetPendingBookmark(ctx, "https://example.com", "x")
	assert.NilError(t, err)
	_, ok, err := svc.CheckPendingBookmark(ctx)
	assert.NilError(t, err)
	assert.Check(t, ok)
}
