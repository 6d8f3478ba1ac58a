package directory

import (
	"fmt"
	"testing"
)

func TestBoundExtraDropsReservedKeys(t *testing.T) {
	in := map[string]any{
		"id":       "s1",
		"email":    "a@b.c",
		"password": "secret",
		"major":    "physics",
		"year":     3,
	}
	got := boundExtra(in)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got["major"] != "physics" || got["year"] != 3 {
		t.Errorf("kept wrong fields: %v", got)
	}
}

func TestBoundExtraCapsSize(t *testing.T) {
	in := map[string]any{}
	for i := 0; i < maxExtraFields+10; i++ {
		in[fmt.Sprintf("field%d", i)] = i
	}
	got := boundExtra(in)
	if len(got) != maxExtraFields {
		t.Errorf("got %d fields, want %d", len(got), maxExtraFields)
	}
}

func TestBoundExtraEmpty(t *testing.T) {
	if got := boundExtra(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := boundExtra(map[string]any{"id": "x"}); got != nil {
		t.Errorf("all-reserved input should yield nil, got %v", got)
	}
}

func TestStringArrayLiteral(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, "{}"},
		{[]string{"s1"}, `{"s1"}`},
		{[]string{"s1", "s2"}, `{"s1","s2"}`},
		{[]string{`we"ird`}, `{"we\"ird"}`},
		{[]string{`back\slash`}, `{"back\\slash"}`},
	}
	for _, tc := range cases {
		if got := stringArray(tc.in); got != tc.want {
			t.Errorf("stringArray(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
