package presets

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinYAML []byte

type Catalog struct {
	byID  map[string]Preset
	order []string
}

type catalogFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadCatalog parses a YAML preset list. Ids must be unique and seed modes
// known; a missing seed mode means "none".
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse preset catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]Preset, len(file.Presets))}
	for _, p := range file.Presets {
		if p.ID == "" {
			return nil, fmt.Errorf("preset %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate preset id %q", p.ID)
		}
		if p.HomePageSeedMode == "" {
			p.HomePageSeedMode = SeedNone
		}
		if !p.HomePageSeedMode.Valid() {
			return nil, fmt.Errorf("preset %q: invalid homePageSeedMode %q", p.ID, p.HomePageSeedMode)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Builtin returns the catalog embedded in the binary.
func Builtin() *Catalog {
	c, err := LoadCatalog(builtinYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Get(id string) (Preset, error) {
	p, ok := c.byID[id]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, id)
	}
	return p, nil
}

// List returns presets in catalog order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
