package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"storefront/cms/internal/blocks"
)

type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError rejects a document whose shape is wrong. Nothing is
// persisted when it is returned.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid content document"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Path+": "+p.Message)
	}
	return "invalid content document: " + strings.Join(parts, "; ")
}

// Report is the outcome of a dry-run validation.
type Report struct {
	Valid    bool      `json:"valid"`
	Warnings []Warning `json:"warnings"`
	Problems []Problem `json:"problems"`
}

// Check validates raw without failing: shape problems and warnings are both
// reported.
func Check(raw []byte, reg *blocks.Registry) Report {
	_, warnings, err := Decode(raw, reg)
	report := Report{Valid: err == nil, Warnings: warnings, Problems: []Problem{}}
	if report.Warnings == nil {
		report.Warnings = []Warning{}
	}
	if verr, ok := err.(*ValidationError); ok {
		report.Problems = verr.Problems
	} else if err != nil {
		report.Problems = []Problem{{Path: "$", Message: err.Error()}}
	}
	return report
}

// Decode parses and validates a wire-format document. Unknown block types are
// kept and reported as warnings; shape errors fail the whole document.
func Decode(raw []byte, reg *blocks.Registry) (Document, []Warning, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return Document{}, nil, &ValidationError{Problems: []Problem{{Path: "$", Message: "malformed JSON: " + err.Error()}}}
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return Document{}, nil, &ValidationError{Problems: []Problem{{Path: "$", Message: "document must be an object"}}}
	}
	return FromMap(obj, reg)
}

// FromMap validates an already-decoded document object.
func FromMap(obj map[string]any, reg *blocks.Registry) (Document, []Warning, error) {
	var problems []Problem
	doc := Document{Version: CurrentVersion, Blocks: []Block{}}

	if v, present := obj["version"]; present && v != nil {
		n, ok := asInt(v)
		if !ok || n < 1 {
			problems = append(problems, Problem{Path: "$.version", Message: "version must be a positive integer"})
		} else {
			doc.Version = n
		}
	}

	rawBlocks, ok := obj["blocks"].([]any)
	if !ok {
		problems = append(problems, Problem{Path: "$.blocks", Message: "blocks must be an array"})
	}

	if v, present := obj["themeOverride"]; present && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			problems = append(problems, Problem{Path: "$.themeOverride", Message: "themeOverride must be an object"})
		} else {
			doc.ThemeOverride = normalizeNumbers(m).(map[string]any)
		}
	}

	seen := map[string]int{}
	for i, item := range rawBlocks {
		path := fmt.Sprintf("$.blocks[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, Problem{Path: path, Message: "block must be an object"})
			continue
		}
		b := Block{Data: map[string]any{}, Settings: map[string]any{}}
		if id, ok := m["id"].(string); ok && strings.TrimSpace(id) != "" {
			b.ID = id
		} else {
			problems = append(problems, Problem{Path: path + ".id", Message: "id is required"})
		}
		if typ, ok := m["type"].(string); ok && strings.TrimSpace(typ) != "" {
			b.Type = typ
		} else {
			problems = append(problems, Problem{Path: path + ".type", Message: "type is required"})
		}
		if data, present := m["data"]; present && data != nil {
			if dm, ok := data.(map[string]any); ok {
				b.Data = normalizeNumbers(dm).(map[string]any)
			} else {
				problems = append(problems, Problem{Path: path + ".data", Message: "data must be an object"})
			}
		}
		if settings, present := m["settings"]; present && settings != nil {
			if sm, ok := settings.(map[string]any); ok {
				b.Settings = normalizeNumbers(sm).(map[string]any)
			} else {
				problems = append(problems, Problem{Path: path + ".settings", Message: "settings must be an object"})
			}
		}
		if b.ID != "" {
			if first, dup := seen[b.ID]; dup {
				problems = append(problems, Problem{Path: path + ".id", Message: fmt.Sprintf("duplicate id %q (first used at $.blocks[%d])", b.ID, first)})
			} else {
				seen[b.ID] = i
			}
		}
		doc.Blocks = append(doc.Blocks, b)
	}

	if len(problems) > 0 {
		return Document{}, nil, &ValidationError{Problems: problems}
	}
	return doc, Validate(doc, reg), nil
}

// Validate returns the non-fatal warnings for a structurally valid document.
func Validate(doc Document, reg *blocks.Registry) []Warning {
	var warnings []Warning
	for _, b := range doc.Blocks {
		if !reg.Has(b.Type) {
			warnings = append(warnings, UnknownBlockType(b))
		}
		if _, ok := b.Data[ReservedDataKey]; ok {
			warnings = append(warnings, ReservedKey(b))
		}
	}
	return warnings
}

// CheckStructure re-applies the shape rules to a typed document, for
// documents that did not come through Decode.
func CheckStructure(doc Document) error {
	var problems []Problem
	seen := map[string]struct{}{}
	for i, b := range doc.Blocks {
		path := fmt.Sprintf("$.blocks[%d]", i)
		if strings.TrimSpace(b.ID) == "" {
			problems = append(problems, Problem{Path: path + ".id", Message: "id is required"})
		} else if _, dup := seen[b.ID]; dup {
			problems = append(problems, Problem{Path: path + ".id", Message: fmt.Sprintf("duplicate id %q", b.ID)})
		} else {
			seen[b.ID] = struct{}{}
		}
		if strings.TrimSpace(b.Type) == "" {
			problems = append(problems, Problem{Path: path + ".type", Message: "type is required"})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// normalizeNumbers turns json.Number back into float64 so decoded data has
// the same shape as encoding/json's default.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeNumbers(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeNumbers(val)
		}
		return out
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	default:
		return v
	}
}
