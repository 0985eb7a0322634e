package configtree

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// FromYAML parses a YAML configuration document into a Tree.
func FromYAML(data []byte) (*Tree, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration document: %w", err)
	}
	return FromAny(doc)
}

// FromAny converts a decoded document (YAML or JSON) into a Tree. Every leaf
// is type-checked during conversion, so a malformed document fails here
// rather than surfacing later as a silent lookup miss.
func FromAny(doc map[string]any) (*Tree, error) {
	root, err := toCty(doc, "")
	if err != nil {
		return nil, err
	}
	return New(root)
}

// ToYAML serializes the tree back into a YAML document.
func (t *Tree) ToYAML() ([]byte, error) {
	doc, err := fromCty(t.root)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// ToAny converts the tree into plain Go values for JSON responses.
func (t *Tree) ToAny() (map[string]any, error) {
	doc, err := fromCty(t.root)
	if err != nil {
		return nil, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, &TypeMismatchError{Path: "", Want: "object", Got: fmt.Sprintf("%T", doc)}
	}
	return m, nil
}

func toCty(v any, path string) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(val), nil
	case string:
		return cty.StringVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(val))
		for i, item := range val {
			elem, err := toCty(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = elem
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		for name, item := range val {
			child := name
			if path != "" {
				child = Join(path, name)
			}
			attr, err := toCty(item, child)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[name] = attr
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, &TypeMismatchError{Path: path, Want: "scalar, list or section", Got: fmt.Sprintf("%T", v)}
	}
}

func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Bool):
		return v.True(), nil
	case ty.Equals(cty.String):
		return v.AsString(), nil
	case ty.Equals(cty.Number):
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType():
		items := v.AsValueSlice()
		out := make([]any, len(items))
		for i, item := range items {
			elem, err := fromCty(item)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for name, item := range v.AsValueMap() {
			attr, err := fromCty(item)
			if err != nil {
				return nil, err
			}
			out[name] = attr
		}
		return out, nil
	default:
		return nil, &TypeMismatchError{Path: "", Want: "scalar, list or section", Got: ty.FriendlyName()}
	}
}
