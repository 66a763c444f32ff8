// -----------------------------------------------------------------------
// Structured Extractor - JSON/YAML records flattened to natural language
// -----------------------------------------------------------------------

package extractors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/corvus-labs/gnosis/internal/models"
)

// extractStructured parses the payload as JSON, falling back to YAML, and
// flattens it to readable prose. A map root yields one unit per top-level
// key with that key as record path; any other root yields a single unit.
func extractStructured(payload []byte, source string) ([]Unit, error) {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		if yerr := yaml.Unmarshal(payload, &data); yerr != nil {
			return nil, fmt.Errorf("%w: payload is neither valid JSON nor YAML: %v", models.ErrExtraction, err)
		}
	}

	root, ok := data.(map[string]any)
	if !ok {
		text := renderValue(data, "", 0)
		if text == "" {
			return nil, nil
		}
		return []Unit{{
			Text: text,
			Meta: models.ChunkMetadata{Source: source, RecordPath: "root"},
		}}, nil
	}

	var units []Unit
	for _, key := range sortedKeys(root) {
		text := renderField(key, root[key], key, 0)
		if text == "" {
			continue
		}
		units = append(units, Unit{
			Text: text,
			Meta: models.ChunkMetadata{Source: source, RecordPath: key},
		})
	}
	return units, nil
}

// renderField renders one key/value pair as "Key Name: value" prose.
func renderField(key string, value any, path string, level int) string {
	indent := strings.Repeat("  ", level)
	label := titleWords(key)

	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return ""
		}
		nested := renderMap(v, path, level+1)
		if nested == "" {
			return ""
		}
		return fmt.Sprintf("%s%s:\n%s", indent, label, nested)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return renderList(v, label, path, level)
	default:
		text := renderValue(value, path, level)
		if text == "" {
			return ""
		}
		return fmt.Sprintf("%s%s: %s", indent, label, text)
	}
}

// renderMap renders a map with one line per field, keys sorted for a
// deterministic output order.
func renderMap(m map[string]any, path string, level int) string {
	var parts []string
	for _, key := range sortedKeys(m) {
		fieldPath := path + "." + key
		if path == "" {
			fieldPath = key
		}
		if text := renderField(key, m[key], fieldPath, level); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// renderList renders a list as bullet items. Long scalar lists are
// summarized; complex lists render their first items and a remainder note.
func renderList(items []any, label, path string, level int) string {
	indent := strings.Repeat("  ", level)
	parts := []string{fmt.Sprintf("%s%s:", indent, label)}

	if allScalars(items) {
		if len(items) <= 5 {
			for i, item := range items {
				parts = append(parts, fmt.Sprintf("%s  - %s", indent, renderValue(item, fmt.Sprintf("%s[%d]", path, i), level)))
			}
		} else {
			head := make([]string, 0, 3)
			for _, item := range items[:3] {
				head = append(head, fmt.Sprintf("%v", item))
			}
			parts = append(parts, fmt.Sprintf("%s  - %s, and %d more items", indent, strings.Join(head, ", "), len(items)-3))
		}
		return strings.Join(parts, "\n")
	}

	limit := len(items)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if obj, ok := items[i].(map[string]any); ok {
			if text := renderMap(obj, itemPath, level+2); text != "" {
				parts = append(parts, fmt.Sprintf("%s  Item %d:", indent, i+1), text)
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s  - %s", indent, renderValue(items[i], itemPath, level)))
	}
	if len(items) > 3 {
		parts = append(parts, fmt.Sprintf("%s  ... and %d more items", indent, len(items)-3))
	}
	return strings.Join(parts, "\n")
}

// renderValue renders a single value as text. Booleans read as yes/no and
// empty lists as "none" so the prose stays natural.
func renderValue(value any, path string, level int) string {
	switch v := value.(type) {
	case nil:
		return "none"
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []any:
		if len(v) == 0 {
			return "none"
		}
		if len(v) == 1 {
			return renderValue(v[0], path, level)
		}
		if allScalars(v) {
			strs := make([]string, 0, len(v))
			for _, item := range v {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ", ")
		}
		limit := len(v)
		if limit > 5 {
			limit = 5
		}
		strs := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			strs = append(strs, renderValue(v[i], fmt.Sprintf("%s[%d]", path, i), level))
		}
		return strings.Join(strs, "; ")
	case map[string]any:
		return renderMap(v, path, level)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case string, bool, float64, int, int64, float32:
		default:
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// titleWords turns a snake_case key into a readable label: "brand_voice"
// becomes "Brand Voice".
func titleWords(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
