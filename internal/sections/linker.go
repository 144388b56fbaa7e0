// Package sections links reusable sections into page documents and detaches
// those links into inline copies.
package sections

import (
	"context"
	"errors"
	"fmt"

	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
)

var ErrNestedReference = errors.New("sections cannot contain section references")

// Source fetches the current state of a section.
type Source interface {
	GetSection(ctx context.Context, id string) (content.Section, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) (content.Section, error)

func (f SourceFunc) GetSection(ctx context.Context, id string) (content.Section, error) {
	return f(ctx, id)
}

// NewReference builds the linked block for section.
func NewReference(section content.Section, newID content.IDFunc) content.Block {
	if newID == nil {
		newID = content.NewBlockID
	}
	return content.Block{
		ID:   newID(blocks.TypeSectionRef),
		Type: blocks.TypeSectionRef,
		Data: map[string]any{
			"sectionId":   section.ID,
			"sectionName": section.Name,
		},
		Settings: map[string]any{},
	}
}

// Insert appends a linked reference to section. doc is not modified.
func Insert(doc content.Document, section content.Section, newID content.IDFunc) content.Document {
	out := doc.Clone()
	out.Blocks = append(out.Blocks, NewReference(section, newID))
	return out
}

// ReferencedID returns the section id a sectionRef block points at.
func ReferencedID(b content.Block) string {
	return blocks.Str(b.Data, "sectionId")
}

// CheckBlocks rejects block lists that cannot be stored as a section.
func CheckBlocks(list []content.Block) error {
	for _, b := range list {
		if b.Kind() == blocks.KindSectionRef {
			return fmt.Errorf("%w: block %s", ErrNestedReference, b.ID)
		}
	}
	return nil
}

type Linker struct {
	source Source
	newID  content.IDFunc
}

func NewLinker(source Source, newID content.IDFunc) *Linker {
	if newID == nil {
		newID = content.NewBlockID
	}
	return &Linker{source: source, newID: newID}
}

// Detach replaces every resolvable sectionRef in doc with fresh-id copies of
// the section's current blocks, in place. References that cannot be resolved
// stay as they are and produce a warning. Only a cancelled context is an
// error.
func (l *Linker) Detach(ctx context.Context, doc content.Document) (content.Document, []content.Warning, error) {
	out := content.Document{Version: doc.Version, Blocks: make([]content.Block, 0, len(doc.Blocks))}
	if doc.ThemeOverride != nil {
		out.ThemeOverride = blocks.CloneProps(doc.ThemeOverride)
	}
	var warnings []content.Warning
	cache := map[string]content.Section{}
	for _, b := range doc.Blocks {
		if b.Kind() != blocks.KindSectionRef {
			out.Blocks = append(out.Blocks, b.Clone())
			continue
		}
		if err := ctx.Err(); err != nil {
			return content.Document{}, nil, err
		}
		sectionID := ReferencedID(b)
		if sectionID == "" {
			warnings = append(warnings, content.SectionUnresolved(b, sectionID, errors.New("reference has no sectionId")))
			out.Blocks = append(out.Blocks, b.Clone())
			continue
		}
		section, ok := cache[sectionID]
		if !ok {
			fetched, err := l.source.GetSection(ctx, sectionID)
			if err != nil {
				warnings = append(warnings, content.SectionUnresolved(b, sectionID, err))
				out.Blocks = append(out.Blocks, b.Clone())
				continue
			}
			section = fetched
			cache[sectionID] = section
		}
		out.Blocks = append(out.Blocks, l.Expand(section)...)
	}
	return out, warnings, nil
}

// Expand copies a section's blocks with fresh ids.
func (l *Linker) Expand(section content.Section) []content.Block {
	return Copy(section, l.newID)
}

// Copy clones a section's blocks with fresh ids so the same section can be
// inlined more than once. Any sectionRef stored in the section is dropped;
// sections are flat.
func Copy(section content.Section, newID content.IDFunc) []content.Block {
	flat := make([]content.Block, 0, len(section.Blocks))
	for _, b := range section.Blocks {
		if b.Kind() == blocks.KindSectionRef {
			continue
		}
		flat = append(flat, b)
	}
	return content.CloneFresh(flat, newID)
}
