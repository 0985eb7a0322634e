// Package configtree provides an immutable, path-addressable view over a
// hierarchical simulation configuration document. Sections are cty object
// values, leaves are cty numbers, bools, strings or tuples of scalars.
//
// A Tree is never mutated after construction. All derivation happens through
// WithOverride, which rebuilds the spine of object values along the
// overridden path and shares every untouched subtree. Because cty values are
// themselves immutable, no mutation performed on one derived tree can ever be
// observed through the original or through a sibling derivation. That
// property is what makes concurrent variation generation and dispatch safe
// without locks.
package configtree

import (
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Separator splits a path string into section and leaf names. Section names
// in simulation configs contain spaces, so paths are slash-delimited, for
// example "change K mem/multiplier".
const Separator = "/"

// Tree is the root of a named-section hierarchy.
type Tree struct {
	root cty.Value
}

// New wraps a cty object value as a Tree. The root must be an object whose
// attributes are the document's top-level sections.
func New(root cty.Value) (*Tree, error) {
	if !root.Type().IsObjectType() {
		return nil, &TypeMismatchError{Path: "", Want: "object", Got: root.Type().FriendlyName()}
	}
	return &Tree{root: root}, nil
}

// Root returns the underlying cty value.
func (t *Tree) Root() cty.Value {
	return t.root
}

// Join builds a path string from individual segment names.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Sections returns the sorted top-level section names of the document.
func (t *Tree) Sections() []string {
	types := t.root.Type().AttributeTypes()
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether every segment of the path exists.
func (t *Tree) Has(path string) bool {
	_, err := t.Get(path)
	return err == nil
}

// Get returns the value at the given path. It fails with *PathNotFoundError
// if any segment is absent and *TypeMismatchError if an intermediate segment
// is not a section.
func (t *Tree) Get(path string) (cty.Value, error) {
	node := t.root
	for _, seg := range strings.Split(path, Separator) {
		if !node.Type().IsObjectType() {
			return cty.NilVal, &TypeMismatchError{Path: path, Want: "object", Got: node.Type().FriendlyName()}
		}
		if !node.Type().HasAttribute(seg) {
			return cty.NilVal, &PathNotFoundError{Path: path, Segment: seg}
		}
		node = node.GetAttr(seg)
	}
	return node, nil
}

// Number returns the numeric leaf at the given path.
func (t *Tree) Number(path string) (float64, error) {
	v, err := t.Get(path)
	if err != nil {
		return 0, err
	}
	if !v.Type().Equals(cty.Number) {
		return 0, &TypeMismatchError{Path: path, Want: "number", Got: v.Type().FriendlyName()}
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// String returns the string leaf at the given path.
func (t *Tree) String(path string) (string, error) {
	v, err := t.Get(path)
	if err != nil {
		return "", err
	}
	if !v.Type().Equals(cty.String) {
		return "", &TypeMismatchError{Path: path, Want: "string", Got: v.Type().FriendlyName()}
	}
	return v.AsString(), nil
}

// Bool returns the boolean leaf at the given path.
func (t *Tree) Bool(path string) (bool, error) {
	v, err := t.Get(path)
	if err != nil {
		return false, err
	}
	if !v.Type().Equals(cty.Bool) {
		return false, &TypeMismatchError{Path: path, Want: "bool", Got: v.Type().FriendlyName()}
	}
	return v.True(), nil
}

// WithOverride returns a new Tree with the value at path replaced. Every
// object along the path is rebuilt; all unrelated subtrees are shared. The
// path must already exist, overrides never invent new sections or leaves.
func (t *Tree) WithOverride(path string, value cty.Value) (*Tree, error) {
	segments := strings.Split(path, Separator)
	root, err := overrideAt(t.root, segments, path, value)
	if err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// WithOverrides applies a set of path overrides and returns the derived
// tree. Paths are applied in sorted order so the result is deterministic.
func (t *Tree) WithOverrides(overrides map[string]cty.Value) (*Tree, error) {
	paths := make([]string, 0, len(overrides))
	for p := range overrides {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := t
	for _, p := range paths {
		next, err := out.WithOverride(p, overrides[p])
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func overrideAt(node cty.Value, segments []string, fullPath string, value cty.Value) (cty.Value, error) {
	if len(segments) == 0 {
		return value, nil
	}
	if !node.Type().IsObjectType() {
		return cty.NilVal, &TypeMismatchError{Path: fullPath, Want: "object", Got: node.Type().FriendlyName()}
	}
	if !node.Type().HasAttribute(segments[0]) {
		return cty.NilVal, &PathNotFoundError{Path: fullPath, Segment: segments[0]}
	}

	attrs := node.AsValueMap()
	child, err := overrideAt(attrs[segments[0]], segments[1:], fullPath, value)
	if err != nil {
		return cty.NilVal, err
	}
	attrs[segments[0]] = child
	return cty.ObjectVal(attrs), nil
}

// WithSection returns a new Tree with the named top-level section added or
// replaced wholesale. Unlike WithOverride it does not require the section to
// exist, which is what save-path bookkeeping needs when a document omits its
// file-handling sections.
func (t *Tree) WithSection(name string, value cty.Value) *Tree {
	attrs := t.root.AsValueMap()
	if attrs == nil {
		attrs = make(map[string]cty.Value)
	}
	attrs[name] = value
	return &Tree{root: cty.ObjectVal(attrs)}
}

// NumericLeafPaths returns the sorted paths of every numeric leaf reachable
// through named sections. Elements inside lists are not addressable by name
// and are not reported.
func (t *Tree) NumericLeafPaths() []string {
	var paths []string
	collectNumeric(t.root, nil, &paths)
	sort.Strings(paths)
	return paths
}

func collectNumeric(node cty.Value, prefix []string, out *[]string) {
	switch {
	case node.Type().IsObjectType():
		for name, val := range node.AsValueMap() {
			child := make([]string, len(prefix)+1)
			copy(child, prefix)
			child[len(prefix)] = name
			collectNumeric(val, child, out)
		}
	case node.Type().Equals(cty.Number):
		*out = append(*out, Join(prefix...))
	}
}
