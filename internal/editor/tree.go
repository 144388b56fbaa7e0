// Package editor converts between stored content documents and the visual
// editor's tree. The tree has no notion of block settings: FromTree always
// yields empty settings, and FromTreeWithSettings restores them by block id
// from the previously stored document.
package editor

import (
	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
)

// IDProp is the prop key the editor uses for block identity. A block data
// field with the same name cannot survive a round trip; content.Validate
// warns about it.
const IDProp = content.ReservedDataKey

const (
	RootTitle         = "title"
	RootThemeOverride = "themeOverride"
)

type Node struct {
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

type Root struct {
	Props map[string]any `json:"props"`
}

type Tree struct {
	Root    Root           `json:"root"`
	Content []Node         `json:"content"`
	Zones   map[string]any `json:"zones,omitempty"`
}

// ToTree builds the editor tree for doc. Blocks without an id get one from
// newID (nil means content.NewBlockID).
func ToTree(doc content.Document, title string, newID content.IDFunc) Tree {
	if newID == nil {
		newID = content.NewBlockID
	}
	tree := Tree{
		Root:    Root{Props: map[string]any{RootTitle: title}},
		Content: make([]Node, 0, len(doc.Blocks)),
	}
	if doc.ThemeOverride != nil {
		tree.Root.Props[RootThemeOverride] = blocks.CloneProps(doc.ThemeOverride)
	}
	for _, b := range doc.Blocks {
		props := blocks.CloneProps(b.Data)
		id := b.ID
		if id == "" {
			id = newID(b.Type)
		}
		props[IDProp] = id
		tree.Content = append(tree.Content, Node{Type: b.Type, Props: props})
	}
	return tree
}

// FromTree converts an editor tree back into a document. Settings are always
// empty; the editor does not model them.
func FromTree(tree Tree) content.Document {
	doc := content.Document{Version: content.CurrentVersion, Blocks: make([]content.Block, 0, len(tree.Content))}
	for _, node := range tree.Content {
		data := blocks.CloneProps(node.Props)
		id, _ := data[IDProp].(string)
		delete(data, IDProp)
		if id == "" {
			id = content.NewBlockID(node.Type)
		}
		doc.Blocks = append(doc.Blocks, content.Block{
			ID:       id,
			Type:     node.Type,
			Data:     data,
			Settings: map[string]any{},
		})
	}
	if override, ok := tree.Root.Props[RootThemeOverride].(map[string]any); ok && len(override) > 0 {
		doc.ThemeOverride = blocks.CloneProps(override)
	}
	return doc
}

// FromTreeWithSettings is FromTree followed by copying settings from the
// block with the same id in previous. Blocks new to the tree keep empty
// settings.
func FromTreeWithSettings(tree Tree, previous content.Document) content.Document {
	doc := FromTree(tree)
	for i, b := range doc.Blocks {
		if prior, ok := previous.BlockByID(b.ID); ok && len(prior.Settings) > 0 {
			doc.Blocks[i].Settings = blocks.CloneProps(prior.Settings)
		}
	}
	return doc
}

// Title returns the page title carried on the root node.
func (t Tree) Title() string {
	title, _ := t.Root.Props[RootTitle].(string)
	return title
}
