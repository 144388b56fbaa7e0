package content

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/cms/internal/blocks"
)

func TestDecodeUnknownTypeIsWarningOnly(t *testing.T) {
	doc, warnings, err := Decode([]byte(`{"blocks":[{"id":"b1","type":"notRealType","data":{}}]}`), blocks.Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnUnknownBlockType, warnings[0].Code)
	assert.Equal(t, "notRealType", warnings[0].BlockType)
	assert.Contains(t, warnings[0].Message, "notRealType")
	assert.Equal(t, CurrentVersion, doc.Version)
	assert.Equal(t, map[string]any{}, doc.Blocks[0].Settings)
}

func TestCheckReportsValidWithWarning(t *testing.T) {
	report := Check([]byte(`{"blocks":[{"id":"b1","type":"notRealType","data":{}}]}`), blocks.Default())
	assert.True(t, report.Valid)
	assert.Len(t, report.Warnings, 1)
	assert.Empty(t, report.Problems)
}

func TestDecodeShapeErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		path string
	}{
		{"not json", `{`, "$"},
		{"array root", `[]`, "$"},
		{"blocks not array", `{"version":1,"blocks":{}}`, "$.blocks"},
		{"blocks missing", `{"version":1}`, "$.blocks"},
		{"block not object", `{"blocks":[1]}`, "$.blocks[0]"},
		{"missing id", `{"blocks":[{"type":"hero"}]}`, "$.blocks[0].id"},
		{"missing type", `{"blocks":[{"id":"b1"}]}`, "$.blocks[0].type"},
		{"data not object", `{"blocks":[{"id":"b1","type":"hero","data":[]}]}`, "$.blocks[0].data"},
		{"bad version", `{"version":1.5,"blocks":[]}`, "$.version"},
		{"duplicate id", `{"blocks":[{"id":"b1","type":"hero"},{"id":"b1","type":"cta"}]}`, "$.blocks[1].id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tc.raw), blocks.Default())
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			paths := make([]string, 0, len(verr.Problems))
			for _, p := range verr.Problems {
				paths = append(paths, p.Path)
			}
			assert.Contains(t, paths, tc.path)
		})
	}
}

func TestDecodeKeepsOrderAndNumbers(t *testing.T) {
	raw := `{"version":1,"blocks":[
		{"id":"a","type":"hero","data":{"headline":"H"}},
		{"id":"b","type":"productGrid","data":{"columns":4,"productIds":["p1"]},"settings":{"className":"x"}},
		{"id":"c","type":"cta","data":{}}
	],"themeOverride":{"themePackId":"bold"}}`
	doc, warnings, err := Decode([]byte(raw), blocks.Default())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{doc.Blocks[0].ID, doc.Blocks[1].ID, doc.Blocks[2].ID})
	assert.Equal(t, float64(4), doc.Blocks[1].Data["columns"])
	assert.Equal(t, "x", doc.Blocks[1].Settings["className"])
	assert.Equal(t, "bold", doc.ThemeOverride["themePackId"])
}

func TestEncodeRoundTripsUnknownTypes(t *testing.T) {
	doc := Document{Blocks: []Block{{ID: "b1", Type: "legacyWidget", Data: map[string]any{"x": "y"}}}}
	raw, err := doc.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"blocks":[{"id":"b1","type":"legacyWidget","data":{"x":"y"},"settings":{}}]}`, string(raw))

	back, _, err := Decode(raw, blocks.Default())
	require.NoError(t, err)
	assert.Equal(t, "legacyWidget", back.Blocks[0].Type)
	assert.Equal(t, blocks.KindUnknown, back.Blocks[0].Kind())
}

func TestCloneIsDeep(t *testing.T) {
	doc := Document{Version: 1, Blocks: []Block{{ID: "a", Type: "faq", Data: map[string]any{"items": []any{map[string]any{"question": "q"}}}}}}
	clone := doc.Clone()
	clone.Blocks[0].Data["items"].([]any)[0].(map[string]any)["question"] = "changed"
	assert.Equal(t, "q", doc.Blocks[0].Data["items"].([]any)[0].(map[string]any)["question"])
}

func TestCloneFreshAssignsNewIDs(t *testing.T) {
	list := []Block{{ID: "a", Type: "hero"}, {ID: "b", Type: "cta"}}
	out := CloneFresh(list, nil)
	require.Len(t, out, 2)
	assert.NotEqual(t, "a", out[0].ID)
	assert.True(t, strings.HasPrefix(out[0].ID, "hero_"))
	assert.True(t, strings.HasPrefix(out[1].ID, "cta_"))
	assert.NotEqual(t, out[0].ID, out[1].ID)
}

func TestNewBlockMergesDefaults(t *testing.T) {
	b := NewBlock(blocks.Default(), blocks.TypeHero, map[string]any{"headline": "H"}, func(string) string { return "fixed" })
	assert.Equal(t, "fixed", b.ID)
	assert.Equal(t, "H", b.Data["headline"])
	assert.Equal(t, "Shop now", b.Data["ctaText"])
	assert.NotNil(t, b.Settings)
}

func TestCheckStructure(t *testing.T) {
	err := CheckStructure(Document{Blocks: []Block{{ID: "a", Type: "hero"}, {ID: "a", Type: ""}}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.NoError(t, CheckStructure(Empty()))
}

func TestWarningJSONShape(t *testing.T) {
	raw, err := json.Marshal(DuplicateBlockTypes("sec_1", "Promo", []string{"hero"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"DUPLICATE_BLOCK_TYPES","message":"section \"Promo\" repeats block types already on the page: hero","sectionId":"sec_1","sectionName":"Promo"}`, string(raw))
}

func TestDecodeWarnsOnReservedDataKey(t *testing.T) {
	doc, warnings, err := Decode([]byte(`{"blocks":[{"id":"b1","type":"hero","data":{"id":"legacy","headline":"H"}}]}`), blocks.Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnReservedDataKey, warnings[0].Code)
	assert.Equal(t, "b1", warnings[0].BlockID)
	assert.Equal(t, "legacy", doc.Blocks[0].Data["id"])

	report := Check([]byte(`{"blocks":[{"id":"b1","type":"hero","data":{"headline":"H"}}]}`), blocks.Default())
	assert.Empty(t, report.Warnings)
}
