package jsonpath

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestGet(t *testing.T) {
	root := decode(t, `{"a":{"b":[{"c":1},{"c":2}]},"s":"x","n":null}`)

	tests := []struct {
		name    string
		path    string
		want    any
		wantNil bool
	}{
		{"nested with index", "a.b[0].c", float64(1), false},
		{"second index", "a.b[1].c", float64(2), false},
		{"missing key", "x.y", nil, true},
		{"empty path", "", nil, true},
		{"whitespace path", "   ", nil, true},
		{"out of range index", "a.b[5].c", nil, true},
		{"index into non-array", "s[0]", nil, true},
		{"key into scalar", "s.x", nil, true},
		{"null leaf", "n", nil, true},
		{"top-level scalar", "s", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Get(root, tt.path).Get()
			if tt.wantNil {
				if ok {
					t.Fatalf("expected None, got %v", got)
				}
				return
			}
			if !ok {
				t.Fatalf("expected %v, got None", tt.want)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDeepNesting(t *testing.T) {
	// Build 40 levels of {"k": ...} around a leaf.
	raw := `1`
	for i := 0; i < 40; i++ {
		raw = `{"k":` + raw + `}`
	}
	root := decode(t, raw)

	path := "k"
	for i := 1; i < 40; i++ {
		path += ".k"
	}

	got, ok := Get(root, path).Get()
	if !ok || got != float64(1) {
		t.Errorf("got %v ok=%v, want 1", got, ok)
	}
}

func TestGetString(t *testing.T) {
	root := decode(t, `{"id":12345,"frac":1.5,"name":"abc","flag":true}`)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"id", "12345", true},
		{"frac", "1.5", true},
		{"name", "abc", true},
		{"flag", "true", true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		got, ok := GetString(root, tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("GetString(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
