// internal/theme/theme.go
//
// Face-label themes for the memory board.
//
// Responsibilities:
//   - Load theme definitions from a YAML file (THEMES_FILE) or fall back to the
//     embedded defaults in assets/themes.yaml.
//   - Map a card value (1..N/2) to the label the presentation layer shows.
//
// Themes:
//   - "numbers" is always present; its label is the value itself.
//   - A theme with fewer labels than pairs falls back to numbers for the rest.
//
// The engine never sees labels; they are resolved when state leaves the server.

package theme

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/memory/assets"
)

// Default is the theme used when none is requested.
const Default = "numbers"

// ErrUnknown is returned for theme names not in the catalog.
var ErrUnknown = errors.New("unknown theme")

// Theme is a named list of face labels.
type Theme struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Labels      []string `yaml:"labels" json:"labels,omitempty"`
}

// Label returns the face for value; values are 1-based.
func (t Theme) Label(value int) string {
	if value >= 1 && value <= len(t.Labels) {
		return t.Labels[value-1]
	}
	return strconv.Itoa(value)
}

type file struct {
	Themes []Theme `yaml:"themes"`
}

// Catalog is an immutable set of themes keyed by lowercase name.
type Catalog struct {
	byName map[string]Theme
}

// Load reads themes from path, or from the embedded defaults when path is empty.
func Load(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read themes file: %w", err)
		}
	} else {
		data, err = assets.Themes()
		if err != nil {
			return nil, fmt.Errorf("read embedded themes: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes a YAML theme document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}

	c := &Catalog{byName: make(map[string]Theme, len(f.Themes)+1)}
	for _, t := range f.Themes {
		name := normalize(t.Name)
		if name == "" {
			return nil, errors.New("parse themes: theme without a name")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("parse themes: duplicate theme %q", name)
		}
		t.Name = name
		c.byName[name] = t
	}
	if _, ok := c.byName[Default]; !ok {
		c.byName[Default] = Theme{Name: Default}
	}
	return c, nil
}

// Get resolves a theme by name; empty selects Default.
func (c *Catalog) Get(name string) (Theme, error) {
	name = normalize(name)
	if name == "" {
		name = Default
	}
	t, ok := c.byName[name]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return t, nil
}

// Names lists theme names alphabetically.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.byName))
	for n := range c.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All lists themes ordered by name.
func (c *Catalog) All() []Theme {
	out := make([]Theme, 0, len(c.byName))
	for _, n := range c.Names() {
		out = append(out, c.byName[n])
	}
	return out
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
