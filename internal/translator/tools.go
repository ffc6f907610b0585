package translator

import (
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Upstream rejects tool names outside [a-zA-Z0-9_.-]; everything else is
// rewritten to '_'. The per-model bijection lets streaming events resolve the
// sanitized name back to the caller's original.

// NameTable maps sanitized tool names back to their originals, per model.
type NameTable struct {
	mu      sync.RWMutex
	byModel map[string]map[string]string
}

func NewNameTable() *NameTable {
	return &NameTable{byModel: make(map[string]map[string]string)}
}

// SanitizeToolName rewrites name into the safe alphabet. Names already safe
// pass through unchanged.
func SanitizeToolName(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Register records the safe→original mapping for a model. Collisions (two
// originals sanitizing to the same safe name) are disambiguated with a
// numeric suffix so the mapping stays a bijection.
func (t *NameTable) Register(model, original string) string {
	safe := SanitizeToolName(original)

	t.mu.Lock()
	defer t.mu.Unlock()
	table, ok := t.byModel[model]
	if !ok {
		table = make(map[string]string)
		t.byModel[model] = table
	}
	if existing, ok := table[safe]; ok && existing != original {
		base := safe
		for i := 2; ; i++ {
			candidate := base + "_" + strconv.Itoa(i)
			if existing, ok := table[candidate]; !ok || existing == original {
				safe = candidate
				break
			}
		}
	}
	table[safe] = original
	return safe
}

// Resolve returns the original name for a sanitized one, falling back to the
// sanitized name itself when the model has no mapping.
func (t *NameTable) Resolve(model, safe string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if table, ok := t.byModel[model]; ok {
		if original, ok := table[safe]; ok {
			return original
		}
	}
	return safe
}

// Reset drops the mapping for one model; tests use it between scenarios.
func (t *NameTable) Reset(model string) {
	t.mu.Lock()
	delete(t.byModel, model)
	t.mu.Unlock()
}

// schemaFieldAllowed lists the JSON Schema fields the upstream accepts on
// tool parameter schemas. Everything else is dropped by cleanParameters.
var schemaFieldAllowed = map[string]bool{
	"type":        true,
	"format":      true,
	"description": true,
	"nullable":    true,
	"enum":        true,
	"items":       true,
	"properties":  true,
	"required":    true,
	"minimum":     true,
	"maximum":     true,
	"minItems":    true,
	"maxItems":    true,
	"minLength":   true,
	"maxLength":   true,
	"pattern":     true,
	"anyOf":       true,
	"default":     true,
}

// cleanParameters rewrites a tool parameter schema into the upstream's
// restricted dialect: unsupported fields dropped, type names uppercased,
// missing properties defaulted to {}.
func cleanParameters(schema gjson.Result) map[string]interface{} {
	if !schema.Exists() || !schema.IsObject() {
		return map[string]interface{}{"type": "OBJECT", "properties": map[string]interface{}{}}
	}
	out := cleanSchemaNode(schema)
	if m, ok := out.(map[string]interface{}); ok {
		if t, _ := m["type"].(string); strings.EqualFold(t, "OBJECT") {
			if _, ok := m["properties"]; !ok {
				m["properties"] = map[string]interface{}{}
			}
		}
		return m
	}
	return map[string]interface{}{"type": "OBJECT", "properties": map[string]interface{}{}}
}

func cleanSchemaNode(node gjson.Result) interface{} {
	if node.IsArray() {
		var arr []interface{}
		node.ForEach(func(_, item gjson.Result) bool {
			arr = append(arr, cleanSchemaNode(item))
			return true
		})
		return arr
	}
	if !node.IsObject() {
		return node.Value()
	}

	out := make(map[string]interface{})
	node.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if !schemaFieldAllowed[k] {
			return true
		}
		switch k {
		case "type":
			out[k] = strings.ToUpper(value.String())
		case "items", "properties":
			if k == "properties" {
				props := make(map[string]interface{})
				value.ForEach(func(pk, pv gjson.Result) bool {
					props[pk.String()] = cleanSchemaNode(pv)
					return true
				})
				out[k] = props
			} else {
				out[k] = cleanSchemaNode(value)
			}
		case "anyOf":
			out[k] = cleanSchemaNode(value)
		default:
			out[k] = value.Value()
		}
		return true
	})
	return out
}
