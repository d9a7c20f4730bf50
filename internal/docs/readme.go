// Package docs renders the command reference into README.md.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/keshon/herald/internal/config"
	"github.com/keshon/herald/internal/registry"
)

// CommandSections renders commands grouped by category in category weight
// order, followed by the context menus.
func CommandSections(reg *registry.Registry, bot *config.Bot) string {
	commands := reg.All()
	slices.SortStableFunc(commands, func(a, b *registry.CommandDefinition) int {
		if a.Category != b.Category {
			keys := []string{a.Category, b.Category}
			bot.SortCategories(keys)
			if keys[0] == a.Category {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	var buf bytes.Buffer
	current := "\x00"
	for _, c := range commands {
		if c.Category != current {
			if current != "\x00" {
				buf.WriteString("\n")
			}
			current = c.Category
			title := bot.CategoryTitle(current)
			if title == "" {
				title = "Other"
			}
			fmt.Fprintf(&buf, "### %s\n\n", title)
		}
		fmt.Fprintf(&buf, "- **%s** - %s\n", display(c, bot.Prefix), c.Description)
		for _, sub := range c.Text.Subcommands {
			fmt.Fprintf(&buf, "  - `%s%s %s` %s\n", bot.Prefix, c.Name, sub.Trigger, sub.Description)
		}
	}

	if menus := reg.Contexts(); len(menus) > 0 {
		buf.WriteString("\n### Context Menus\n\n")
		for _, m := range menus {
			fmt.Fprintf(&buf, "- **%s** (%s)\n", m.Name, strings.ToLower(m.Type.String()))
		}
	}
	return buf.String()
}

func display(c *registry.CommandDefinition, prefix string) string {
	var forms []string
	if c.Text.Enabled {
		forms = append(forms, "`"+prefix+c.Name+"`")
	}
	if c.Slash.Enabled {
		forms = append(forms, "`/"+c.Name+"`")
	}
	return strings.Join(forms, " ")
}

// Render executes the template at tmplPath with CommandSections.
func Render(tmplPath string, reg *registry.Registry, bot *config.Bot) ([]byte, error) {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return nil, err
	}
	data := struct {
		CommandSections string
	}{
		CommandSections: CommandSections(reg, bot),
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// UpdateReadme renders tmplPath into outPath.
func UpdateReadme(tmplPath, outPath string, reg *registry.Registry, bot *config.Bot) error {
	data, err := Render(tmplPath, reg, bot)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
