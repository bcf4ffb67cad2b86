package model

import "strings"

// Theme types.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme is a user-defined color theme.
type Theme struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Bg            string `json:"bg"`
	BgSecondary   string `json:"bgSecondary"`
	Card          string `json:"card"`
	CardHover     string `json:"cardHover"`
	Border        string `json:"border"`
	BorderHover   string `json:"borderHover"`
	Text          string `json:"text"`
	TextSecondary string `json:"textSecondary"`
	Accent        string `json:"accent"`
	LogoColor     string `json:"logoColor,omitempty"`
}

// Slug is the storage key of the theme: the lowercased name with spaces
// replaced by dashes. Renaming a theme therefore yields a new key.
func (t Theme) Slug() string {
	return strings.ReplaceAll(strings.ToLower(t.Name), " ", "-")
}

// Colors returns the required color fields keyed by their JSON name.
func (t Theme) Colors() map[string]string {
	return map[string]string{
		"bg":            t.Bg,
		"bgSecondary":   t.BgSecondary,
		"card":          t.Card,
		"cardHover":     t.CardHover,
		"border":        t.Border,
		"borderHover":   t.BorderHover,
		"text":          t.Text,
		"textSecondary": t.TextSecondary,
		"accent":        t.Accent,
	}
}
