package cob

import "strings"

const (
	RangeLines = "lines"
	RangeChars = "chars"
)

// CodeLocation points into a file of a commit, on the old side, the new side,
// or both sides of a diff.
type CodeLocation struct {
	Commit string     `json:"commit"`
	Path   string     `json:"path"`
	Old    *CodeRange `json:"old"`
	New    *CodeRange `json:"new"`
}

// CodeRange is either a line range or a character range on one line.
type CodeRange struct {
	Type  string `json:"type"`
	Line  *int   `json:"line,omitempty"`
	Range Span   `json:"range"`
}

type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CompareLocations orders locations by commit, path, old range and new range.
// A nil location or range sorts before any other, line ranges before
// character ranges, and ranges compare numerically.
func CompareLocations(a, b *CodeLocation) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := strings.Compare(a.Commit, b.Commit); c != 0 {
		return c
	}
	if c := strings.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	if c := compareRanges(a.Old, b.Old); c != 0 {
		return c
	}
	return compareRanges(a.New, b.New)
}

func compareRanges(a, b *CodeRange) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := rangeTypeRank(a.Type) - rangeTypeRank(b.Type); c != 0 {
		return sign(c)
	}
	if c := compareLine(a.Line, b.Line); c != 0 {
		return c
	}
	if a.Range.Start != b.Range.Start {
		return sign(a.Range.Start - b.Range.Start)
	}
	return sign(a.Range.End - b.Range.End)
}

func rangeTypeRank(t string) int {
	switch t {
	case RangeLines:
		return 0
	case RangeChars:
		return 1
	default:
		return 2
	}
}

func compareLine(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return sign(*a - *b)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
