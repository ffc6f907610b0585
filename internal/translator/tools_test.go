package translator

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestSanitizeToolName(t *testing.T) {
	cases := map[string]string{
		"get_weather":     "get_weather",
		"mcp__tool name":  "mcp__tool_name",
		"a/b:c":           "a_b_c",
		"dots.and-dashes": "dots.and-dashes",
		"中文工具":            "____",
	}
	for in, want := range cases {
		if got := SanitizeToolName(in); got != want {
			t.Errorf("%q: want %q, got %q", in, want, got)
		}
	}
}

// Registering then resolving must round-trip every original name, even when
// two originals collide after sanitization.
func TestNameTable_RoundTrip(t *testing.T) {
	nt := NewNameTable()
	originals := []string{"tool a", "tool b", "tool_a", "plain"}

	safeFor := make(map[string]string)
	for _, orig := range originals {
		safeFor[orig] = nt.Register("m", orig)
	}

	seen := make(map[string]bool)
	for _, orig := range originals {
		safe := safeFor[orig]
		if seen[safe] {
			t.Fatalf("safe name %q assigned twice", safe)
		}
		seen[safe] = true
		if got := nt.Resolve("m", safe); got != orig {
			t.Errorf("resolve %q: want %q, got %q", safe, orig, got)
		}
	}
}

func TestNameTable_RegisterIdempotent(t *testing.T) {
	nt := NewNameTable()
	first := nt.Register("m", "my tool")
	second := nt.Register("m", "my tool")
	if first != second {
		t.Errorf("re-registering the same original must be stable: %q vs %q", first, second)
	}
}

func TestNameTable_ResolveUnknownFallsBack(t *testing.T) {
	nt := NewNameTable()
	if got := nt.Resolve("m", "never_seen"); got != "never_seen" {
		t.Errorf("unknown safe name should pass through, got %q", got)
	}
}

func TestNameTable_PerModelIsolation(t *testing.T) {
	nt := NewNameTable()
	nt.Register("m1", "tool a")
	if got := nt.Resolve("m2", "tool_a"); got != "tool_a" {
		t.Errorf("m2 should have no mapping, got %q", got)
	}
	nt.Reset("m1")
	if got := nt.Resolve("m1", "tool_a"); got != "tool_a" {
		t.Errorf("reset should drop the mapping, got %q", got)
	}
}

func TestCleanParameters(t *testing.T) {
	schema := gjson.Parse(`{
		"type": "object",
		"additionalProperties": false,
		"$schema": "http://json-schema.org/draft-07/schema#",
		"properties": {
			"city": {"type": "string", "description": "city name", "examples": ["BJ"]},
			"days": {"type": "integer", "minimum": 1, "maximum": 7},
			"tags": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["city"]
	}`)

	out := cleanParameters(schema)
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	got := gjson.ParseBytes(raw)

	if got.Get("type").String() != "OBJECT" {
		t.Errorf("type should be uppercased: %s", raw)
	}
	if got.Get("additionalProperties").Exists() || got.Get(`\$schema`).Exists() {
		t.Errorf("unsupported fields must be dropped: %s", raw)
	}
	if got.Get("properties.city.type").String() != "STRING" {
		t.Errorf("nested type: %s", raw)
	}
	if got.Get("properties.city.examples").Exists() {
		t.Errorf("examples must be dropped: %s", raw)
	}
	if got.Get("properties.days.minimum").Int() != 1 {
		t.Errorf("minimum should survive: %s", raw)
	}
	if got.Get("properties.tags.items.type").String() != "STRING" {
		t.Errorf("items recursion: %s", raw)
	}
	if got.Get("required.0").String() != "city" {
		t.Errorf("required should survive: %s", raw)
	}
}

func TestCleanParameters_ObjectGetsDefaultProperties(t *testing.T) {
	out := cleanParameters(gjson.Parse(`{"type":"object"}`))
	m, ok := out["properties"].(map[string]interface{})
	if !ok || len(m) != 0 {
		t.Errorf("OBJECT without properties must default to {}: %+v", out)
	}
}

func TestCleanParameters_MissingSchema(t *testing.T) {
	out := cleanParameters(gjson.Parse(`null`))
	if out["type"] != "OBJECT" {
		t.Errorf("missing schema should default to OBJECT: %+v", out)
	}
}
