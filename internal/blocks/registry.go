package blocks

import (
	"errors"
	"html/template"
	"sort"
	"strings"
	"sync"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldBoolean  FieldType = "boolean"
	FieldURL      FieldType = "url"
	FieldImage    FieldType = "image"
	FieldProduct  FieldType = "product"
	FieldProducts FieldType = "products"
	FieldList     FieldType = "list"
	FieldSection  FieldType = "section"
)

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field describes one editor input. It is consumed by the editor bridge only;
// stored documents never carry schema.
type Field struct {
	Type    FieldType `json:"type"`
	Label   string    `json:"label"`
	Options []Option  `json:"options,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
}

// RenderFunc renders one block instance. data and settings are never nil.
type RenderFunc func(data, settings map[string]any) (template.HTML, error)

type Entry struct {
	Type         string           `json:"type"`
	Kind         Kind             `json:"-"`
	Label        string           `json:"label"`
	Category     string           `json:"category"`
	DefaultProps map[string]any   `json:"defaultProps"`
	Fields       map[string]Field `json:"fields"`
	Render       RenderFunc       `json:"-"`
}

var ErrEmptyType = errors.New("block type is required")

// Registry maps block type strings to their definitions. It is safe for
// concurrent use; the last registration for a type wins.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the built-in block types.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterDefaults(defaultRegistry)
	})
	return defaultRegistry
}

func (r *Registry) Register(entry Entry) error {
	entry.Type = strings.TrimSpace(entry.Type)
	if entry.Type == "" {
		return ErrEmptyType
	}
	if entry.Kind == KindUnknown {
		entry.Kind = KindOf(entry.Type)
	}
	if entry.DefaultProps == nil {
		entry.DefaultProps = map[string]any{}
	}
	if entry.Fields == nil {
		entry.Fields = map[string]Field{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Type] = entry
	return nil
}

func (r *Registry) Get(blockType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[blockType]
	return entry, ok
}

// Has reports whether blockType resolves in the registry.
func (r *Registry) Has(blockType string) bool {
	_, ok := r.Get(blockType)
	return ok
}

// Defaults returns a deep copy of the default props for blockType, or an
// empty map when the type is not registered.
func (r *Registry) Defaults(blockType string) map[string]any {
	entry, ok := r.Get(blockType)
	if !ok {
		return map[string]any{}
	}
	return CloneProps(entry.DefaultProps)
}

func (r *Registry) List() []Entry {
	r.mu.RLock()
	items := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		items = append(items, entry)
	}
	r.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Type < items[j].Type
	})
	return items
}

func (r *Registry) ListByCategory(category string) []Entry {
	all := r.List()
	items := make([]Entry, 0, len(all))
	for _, entry := range all {
		if entry.Category == category {
			items = append(items, entry)
		}
	}
	return items
}

// Categories returns the distinct categories in sorted order.
func (r *Registry) Categories() []string {
	seen := map[string]struct{}{}
	for _, entry := range r.List() {
		seen[entry.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}
