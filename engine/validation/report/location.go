package report

import (
	"fmt"
	"strings"
)

// Location names the API call, and optionally the parameter, a message is about.
type Location struct {
	Function string
	path     []string
}

func Loc(function string) Location {
	return Location{Function: function}
}

// Dot descends into a named field.
func (l Location) Dot(field string) Location {
	return l.with(field)
}

// At descends into an element of an array field.
func (l Location) At(field string, index int) Location {
	return l.with(fmt.Sprintf("%s[%d]", field, index))
}

func (l Location) with(part string) Location {
	path := make([]string, len(l.path), len(l.path)+1)
	copy(path, l.path)
	return Location{Function: l.Function, path: append(path, part)}
}

func (l Location) String() string {
	if len(l.path) == 0 {
		return l.Function + "()"
	}
	return l.Function + "(): " + strings.Join(l.path, ".")
}
