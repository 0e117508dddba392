package search

import (
	"strconv"
	"strings"
)

// TraceEntry is one line of the traversal log. Entries are recorded when a
// frame is entered and again after each of its children resolves, carrying
// the frame's best value so far.
type TraceEntry struct {
	Label  string
	Depth  int
	Value  Value
	Alpha  Value
	Beta   Value
	Bounds bool // include Alpha and Beta when rendered
}

func (e TraceEntry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Label)
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(e.Depth))
	sb.WriteByte(',')
	sb.WriteString(e.Value.String())
	if e.Bounds {
		sb.WriteByte(',')
		sb.WriteString(e.Alpha.String())
		sb.WriteByte(',')
		sb.WriteString(e.Beta.String())
	}
	return sb.String()
}
