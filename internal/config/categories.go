package config

import (
	"cmp"
	"slices"
	"strings"
)

// Category is a command category. Weight orders categories in help output.
type Category struct {
	Name    string `yaml:"name"`
	Emoji   string `yaml:"emoji"`
	Weight  int    `yaml:"weight"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled reports whether commands of this category are loaded.
func (c Category) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Title is the emoji-prefixed display name.
func (c Category) Title() string {
	if c.Emoji == "" {
		return c.Name
	}
	return c.Emoji + " " + c.Name
}

// Category keys used by the built-in commands.
const (
	CategoryInformation = "INFORMATION"
	CategoryUtility     = "UTILITY"
	CategoryApplication = "APPLICATION"
	CategoryAdmin       = "ADMIN"
)

func DefaultCategories() map[string]Category {
	return map[string]Category{
		CategoryInformation: {Name: "Information", Emoji: "🕯️", Weight: 0},
		CategoryUtility:     {Name: "Utilities", Emoji: "📢", Weight: 10},
		CategoryApplication: {Name: "Applications", Emoji: "📝", Weight: 30},
		CategoryAdmin:       {Name: "Settings", Emoji: "⚙️", Weight: 50},
	}
}

func mergeCategories(base, override map[string]Category) map[string]Category {
	for key, c := range override {
		key = strings.ToUpper(key)
		merged := base[key]
		if c.Name != "" {
			merged.Name = c.Name
		}
		if c.Emoji != "" {
			merged.Emoji = c.Emoji
		}
		if c.Weight != 0 {
			merged.Weight = c.Weight
		}
		if c.Enabled != nil {
			merged.Enabled = c.Enabled
		}
		if merged.Name == "" {
			merged.Name = key
		}
		base[key] = merged
	}
	return base
}

// CategoryEnabled reports whether a category is administratively enabled.
// Unknown categories are enabled.
func (b *Bot) CategoryEnabled(key string) bool {
	c, ok := b.Categories[strings.ToUpper(key)]
	return !ok || c.IsEnabled()
}

// CategoryTitle returns the display title for a category key.
func (b *Bot) CategoryTitle(key string) string {
	if c, ok := b.Categories[strings.ToUpper(key)]; ok {
		return c.Title()
	}
	return key
}

// SortCategories orders category keys by weight, then key.
func (b *Bot) SortCategories(keys []string) {
	slices.SortFunc(keys, func(x, y string) int {
		wx, wy := b.Categories[strings.ToUpper(x)].Weight, b.Categories[strings.ToUpper(y)].Weight
		if wx != wy {
			return cmp.Compare(wx, wy)
		}
		return strings.Compare(x, y)
	})
}
