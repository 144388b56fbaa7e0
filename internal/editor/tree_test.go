package editor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/cms/internal/blocks"
	"storefront/cms/internal/content"
)

func sampleDoc() content.Document {
	return content.Document{
		Version: 1,
		Blocks: []content.Block{
			{ID: "hero_1", Type: "hero", Data: map[string]any{"headline": "H", "alignment": "left"}, Settings: map[string]any{"className": "dark"}},
			{ID: "x_1", Type: "notRealType", Data: map[string]any{"nested": map[string]any{"a": []any{1.0, "b"}}}, Settings: map[string]any{}},
			{ID: "", Type: "cta", Data: map[string]any{"buttonLink": "/shop"}},
		},
	}
}

func TestRoundTripPreservesTypeAndData(t *testing.T) {
	doc := sampleDoc()
	back := FromTree(ToTree(doc, "Home", nil))

	require.Len(t, back.Blocks, len(doc.Blocks))
	for i, b := range doc.Blocks {
		assert.Equal(t, b.Type, back.Blocks[i].Type)
		assert.Equal(t, b.Data, back.Blocks[i].Data)
		if b.ID != "" {
			assert.Equal(t, b.ID, back.Blocks[i].ID)
		}
	}
	assert.True(t, strings.HasPrefix(back.Blocks[2].ID, "cta_"))
}

func TestRoundTripThroughJSON(t *testing.T) {
	raw, err := json.Marshal(ToTree(sampleDoc(), "Home", nil))
	require.NoError(t, err)
	var tree Tree
	require.NoError(t, json.Unmarshal(raw, &tree))
	back := FromTree(tree)
	assert.Equal(t, sampleDoc().Blocks[1].Data, back.Blocks[1].Data)
	assert.Equal(t, "Home", tree.Title())
}

func TestFromTreeDropsSettings(t *testing.T) {
	back := FromTree(ToTree(sampleDoc(), "Home", nil))
	for _, b := range back.Blocks {
		assert.Equal(t, map[string]any{}, b.Settings)
	}
	assert.Equal(t, content.CurrentVersion, back.Version)
}

func TestFromTreeWithSettingsRestoresByID(t *testing.T) {
	doc := sampleDoc()
	tree := ToTree(doc, "Home", nil)
	tree.Content = append([]Node{{Type: "faq", Props: map[string]any{"id": "faq_new"}}}, tree.Content...)

	back := FromTreeWithSettings(tree, doc)
	require.Len(t, back.Blocks, 4)
	assert.Equal(t, map[string]any{}, back.Blocks[0].Settings)
	assert.Equal(t, "dark", back.Blocks[1].Settings["className"])

	back.Blocks[1].Settings["className"] = "light"
	assert.Equal(t, "dark", doc.Blocks[0].Settings["className"])
}

func TestToTreeUsesIDFuncForMissingIDs(t *testing.T) {
	tree := ToTree(sampleDoc(), "Home", func(typ string) string { return "gen-" + typ })
	assert.Equal(t, "hero_1", tree.Content[0].Props[IDProp])
	assert.Equal(t, "gen-cta", tree.Content[2].Props[IDProp])
	_, leaked := sampleDoc().Blocks[0].Data[IDProp]
	assert.False(t, leaked)
}

func TestThemeOverrideTravelsOnRoot(t *testing.T) {
	doc := content.Document{Version: 1, Blocks: []content.Block{}, ThemeOverride: map[string]any{"themePackId": "bold"}}
	tree := ToTree(doc, "Launch", nil)
	assert.Equal(t, map[string]any{"themePackId": "bold"}, tree.Root.Props[RootThemeOverride])
	assert.Equal(t, "bold", FromTree(tree).ThemeOverride["themePackId"])
}

func TestReservedIDDataFieldIsFlagged(t *testing.T) {
	doc := content.Document{
		Version: 1,
		Blocks:  []content.Block{{ID: "b1", Type: "productHighlight", Data: map[string]any{"id": "sku-9", "productId": "p1"}}},
	}

	warnings := content.Validate(doc, blocks.Default())
	require.Len(t, warnings, 1)
	assert.Equal(t, content.WarnReservedDataKey, warnings[0].Code)
	assert.Equal(t, "b1", warnings[0].BlockID)

	back := FromTree(ToTree(doc, "", nil))
	assert.Equal(t, "b1", back.Blocks[0].ID)
	assert.Equal(t, map[string]any{"productId": "p1"}, back.Blocks[0].Data)
}
