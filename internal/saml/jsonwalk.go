package saml

import (
	"encoding/json"
	"sort"
	"strings"
)

// fromJSONBody parses the raw body as JSON and walks every string leaf.
// A field whose name contains "samlresponse" or "samlrequest" wins over any
// merely base64-looking value; among the latter the first one found wins.
// Map keys are visited in sorted order so extraction is deterministic.
func fromJSONBody(body []byte) (Candidate, bool) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return Candidate{}, false
	}

	w := &jsonWalker{}
	w.visit("", root)

	switch {
	case w.namedField != "":
		return Candidate{
			Name:      w.namedField,
			Value:     w.namedValue,
			Kind:      kindFromName(w.namedField, KindBase64),
			Transport: TransportJSON,
		}, true
	case w.base64Field != "" || w.base64Value != "":
		return Candidate{
			Name:      w.base64Field,
			Value:     w.base64Value,
			Kind:      kindFromName(w.base64Field, KindBase64),
			Transport: TransportJSON,
		}, true
	}
	return Candidate{}, false
}

// jsonWalker does a depth-first pass over the tagged-variant tree produced
// by encoding/json (map[string]any, []any, string, float64, bool, nil).
type jsonWalker struct {
	namedField  string
	namedValue  string
	base64Field string
	base64Value string
}

func (w *jsonWalker) visit(field string, node any) {
	if w.namedField != "" {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			w.visit(key, v[key])
		}
	case []any:
		for _, child := range v {
			w.visit(field, child)
		}
	case string:
		w.visitString(field, v)
	}
}

func (w *jsonWalker) visitString(field, value string) {
	lower := strings.ToLower(field)
	if strings.Contains(lower, "samlresponse") || strings.Contains(lower, "samlrequest") {
		w.namedField = field
		w.namedValue = value
		return
	}
	if w.base64Value == "" && LooksBase64(value) {
		w.base64Field = field
		w.base64Value = value
	}
}
