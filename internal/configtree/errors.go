package configtree

import "fmt"

// PathNotFoundError reports a lookup whose path has a segment that does not
// exist in the tree.
type PathNotFoundError struct {
	Path    string
	Segment string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("config path %q not found: missing segment %q", e.Path, e.Segment)
}

// TypeMismatchError reports a leaf or section whose value has a different
// type than the caller asked for.
type TypeMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("config path %q: want %s, got %s", e.Path, e.Want, e.Got)
}
