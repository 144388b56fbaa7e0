// Package content is the versioned block document every page and section is
// stored as.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"storefront/cms/internal/blocks"
)

// CurrentVersion is the schema marker written on every document. It tracks
// the shape of the document, not how many times it was saved.
const CurrentVersion = 1

type Block struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
	Settings map[string]any `json:"settings"`
}

func (b Block) Kind() blocks.Kind {
	return blocks.KindOf(b.Type)
}

func (b Block) Clone() Block {
	return Block{
		ID:       b.ID,
		Type:     b.Type,
		Data:     blocks.CloneProps(b.Data),
		Settings: blocks.CloneProps(b.Settings),
	}
}

// Document is one page's content. Block order is render order.
type Document struct {
	Version       int            `json:"version"`
	Blocks        []Block        `json:"blocks"`
	ThemeOverride map[string]any `json:"themeOverride,omitempty"`
}

func Empty() Document {
	return Document{Version: CurrentVersion, Blocks: []Block{}}
}

func (d Document) Clone() Document {
	out := Document{Version: d.Version, Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = b.Clone()
	}
	if d.ThemeOverride != nil {
		out.ThemeOverride = blocks.CloneProps(d.ThemeOverride)
	}
	return out
}

// Normalized fills in the zero values the wire format never omits: version,
// an empty block list, and empty data/settings objects.
func (d Document) Normalized() Document {
	out := d.Clone()
	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	for i := range out.Blocks {
		if out.Blocks[i].Data == nil {
			out.Blocks[i].Data = map[string]any{}
		}
		if out.Blocks[i].Settings == nil {
			out.Blocks[i].Settings = map[string]any{}
		}
	}
	return out
}

func (d Document) Encode() ([]byte, error) {
	return json.Marshal(d.Normalized())
}

func (d Document) BlockByID(id string) (Block, bool) {
	for _, b := range d.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// HasSectionRefs reports whether any block still links to a section.
func (d Document) HasSectionRefs() bool {
	for _, b := range d.Blocks {
		if b.Kind() == blocks.KindSectionRef {
			return true
		}
	}
	return false
}

// BlockTypes returns the distinct block types in first-seen order.
func (d Document) BlockTypes() []string {
	return DistinctTypes(d.Blocks)
}

func DistinctTypes(list []Block) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(list))
	for _, b := range list {
		if _, ok := seen[b.Type]; ok {
			continue
		}
		seen[b.Type] = struct{}{}
		out = append(out, b.Type)
	}
	return out
}

// IDFunc produces a fresh block id for the given block type.
type IDFunc func(blockType string) string

// NewBlockID returns "<type>_<uuid>".
func NewBlockID(blockType string) string {
	if blockType == "" {
		blockType = "block"
	}
	return fmt.Sprintf("%s_%s", blockType, uuid.NewString())
}

// CloneFresh deep-copies list and gives every copy a new id.
func CloneFresh(list []Block, newID IDFunc) []Block {
	if newID == nil {
		newID = NewBlockID
	}
	out := make([]Block, len(list))
	for i, b := range list {
		c := b.Clone()
		c.ID = newID(c.Type)
		out[i] = c
	}
	return out
}

// NewBlock creates an instance of blockType seeded from the registry defaults
// with data layered on top.
func NewBlock(reg *blocks.Registry, blockType string, data map[string]any, newID IDFunc) Block {
	if newID == nil {
		newID = NewBlockID
	}
	merged := reg.Defaults(blockType)
	for key, value := range blocks.CloneProps(data) {
		merged[key] = value
	}
	return Block{
		ID:       newID(blockType),
		Type:     blockType,
		Data:     merged,
		Settings: map[string]any{},
	}
}
