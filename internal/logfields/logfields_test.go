package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

func TestHelperKeys(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{PageID("pg_1"), KeyPageID, "pg_1"},
		{SectionID("sec_1"), KeySectionID, "sec_1"},
		{PresetID("bold"), KeyPresetID, "bold"},
		{TemplateID("launch"), KeyTemplateID, "launch"},
		{BlockType("hero"), KeyBlockType, "hero"},
		{Error(errors.New("boom")), KeyError, "boom"},
		{Error(nil), KeyError, ""},
	}
	for _, tc := range cases {
		if tc.attr.Key != tc.key {
			t.Errorf("key = %q, want %q", tc.attr.Key, tc.key)
		}
		if got := tc.attr.Value.String(); got != tc.val {
			t.Errorf("%s value = %q, want %q", tc.key, got, tc.val)
		}
	}
}

func TestStatusIsInt(t *testing.T) {
	attr := Status(404)
	if attr.Value.Kind() != slog.KindInt64 || attr.Value.Int64() != 404 {
		t.Fatalf("unexpected status attr %v", attr)
	}
}
