// Package landing assembles landing pages from a template, product picks and
// library sections.
package landing

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinYAML []byte

var ErrUnknownTemplate = errors.New("unknown template")

// TemplateBlock has no id; ids are assigned on every assembly.
type TemplateBlock struct {
	Type string         `yaml:"type" json:"type"`
	Data map[string]any `yaml:"data" json:"data"`
}

type Template struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Tags        []string        `yaml:"tags" json:"tags"`
	Blocks      []TemplateBlock `yaml:"blocks" json:"blocks"`
}

// BlockTypes returns the distinct block types in first-seen order.
func (t Template) BlockTypes() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		if _, ok := seen[b.Type]; ok {
			continue
		}
		seen[b.Type] = struct{}{}
		out = append(out, b.Type)
	}
	return out
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

func ParseTemplates(data []byte) ([]Template, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	seen := map[string]struct{}{}
	for i, tpl := range file.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("template %d has no id", i)
		}
		if _, dup := seen[tpl.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", tpl.ID)
		}
		seen[tpl.ID] = struct{}{}
		for j, b := range tpl.Blocks {
			if b.Type == "" {
				return nil, fmt.Errorf("template %q block %d has no type", tpl.ID, j)
			}
			file.Templates[i].Blocks[j].Data = normalize(b.Data)
		}
	}
	return file.Templates, nil
}

var builtin = func() []Template {
	list, err := ParseTemplates(builtinYAML)
	if err != nil {
		panic(err)
	}
	return list
}()

// Templates returns the built-in catalog. Callers must not modify the result.
func Templates() []Template {
	return builtin
}

func TemplateByID(id string) (Template, error) {
	for _, tpl := range builtin {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
}

// normalize gives YAML-decoded data the shape JSON decoding would: float64
// numbers and []any lists of map[string]any.
func normalize(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return normalizeValue(data).(map[string]any)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}
