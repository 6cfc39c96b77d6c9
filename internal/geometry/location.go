package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is a zero-based board coordinate.
type Location struct {
	Row int `json:"row" bson:"row"`
	Col int `json:"col" bson:"col"`
}

// Compare orders locations by row, then column.
func (l Location) Compare(other Location) int {
	switch {
	case l.Row < other.Row:
		return -1
	case l.Row > other.Row:
		return 1
	case l.Col < other.Col:
		return -1
	case l.Col > other.Col:
		return 1
	}
	return 0
}

// Index flattens the location for a board with the given number of columns.
func (l Location) Index(cols int) int {
	return l.Row*cols + l.Col
}

// InBounds reports whether the location lies on a rows x cols board.
func (l Location) InBounds(rows, cols int) bool {
	return l.Row >= 0 && l.Row < rows && l.Col >= 0 && l.Col < cols
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.Row, l.Col)
}

// ParseLocation reads "row,col", optionally wrapped in parentheses.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	r, c, ok := strings.Cut(s, ",")
	if !ok {
		return Location{}, fmt.Errorf("location %q: want row,col", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil {
		return Location{}, fmt.Errorf("location %q: bad row: %w", s, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil {
		return Location{}, fmt.Errorf("location %q: bad column: %w", s, err)
	}
	return Location{Row: row, Col: col}, nil
}

// ParseLocations reads a space or semicolon separated list such as
// "1,1 0,0;2,2". An empty string is an empty list.
func ParseLocations(s string) ([]Location, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t'
	})
	out := make([]Location, 0, len(fields))
	for _, f := range fields {
		loc, err := ParseLocation(f)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}
