package workspace

import "strings"

// ionCharges maps plain ion names in uploaded keys to their charged forms
// used by the engine's configuration schema. Order is fixed because the
// first matching ion wins the replacement.
var ionCharges = []struct{ plain, charged string }{
	{"Na", "Na+"},
	{"K", "K+"},
	{"Cl", "Cl-"},
	{"Ca2", "Ca2+"},
	{"Mg", "Mg2+"},
	{"protein", "protein-"},
	{"anion", "anion-"},
	{"H", "H+"},
}

// NormalizeKeys recursively rewrites the keys of an uploaded JSON document
// into the engine's space-separated configuration key style, including
// nested sections and lists.
func NormalizeKeys(doc any) any {
	switch v := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[normalizeKey(key)] = NormalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeKeys(item)
		}
		return out
	default:
		return doc
	}
}

// normalizeKey converts one underscored JSON key to the engine's key style.
// Compound keys that legitimately contain underscores are left alone.
func normalizeKey(key string) string {
	switch {
	case strings.Contains(key, "gradient"),
		strings.Contains(key, "sweep"),
		strings.Contains(key, "Do"),
		strings.Contains(key, "alpha"),
		strings.Contains(key, "Dm_"):
		return key
	case strings.Contains(key, "offset"):
		return strings.ReplaceAll(key, "_", "-")
	case key == "sim_grn_settings":
		return "sim-grn settings"
	}

	if strings.Contains(key, "concentration") {
		for _, ion := range ionCharges {
			if strings.Contains(key, ion.plain) {
				key = strings.Replace(key, ion.plain, ion.charged, 1)
				break
			}
		}
	}
	return strings.ReplaceAll(key, "_", " ")
}
