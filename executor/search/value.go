package search

import (
	"strconv"

	"github.com/brensch/kalah/rules"
)

type valueKind int8

// Kinds are declared in ascending order so that comparing kinds orders values.
const (
	kindNegInf valueKind = iota
	kindLoss
	kindOngoing
	kindWin
	kindPosInf
)

// Value is a search result from the root player's perspective. NegInf and
// PosInf are only ever initial bests and alpha/beta bounds; leaves always
// carry Loss, Win or an Ongoing score.
type Value struct {
	kind   valueKind
	points int
}

var (
	NegInf = Value{kind: kindNegInf}
	PosInf = Value{kind: kindPosInf}
	Win    = Value{kind: kindWin}
	Loss   = Value{kind: kindLoss}
)

// Points wraps a heuristic score.
func Points(p int) Value {
	return Value{kind: kindOngoing, points: p}
}

func fromScore(s rules.Score) Value {
	switch s.Outcome {
	case rules.Win:
		return Win
	case rules.Loss:
		return Loss
	}
	return Points(s.Points)
}

// Less orders NegInf < Loss < Points(any) < Win < PosInf.
func (v Value) Less(o Value) bool {
	if v.kind != o.kind {
		return v.kind < o.kind
	}
	return v.kind == kindOngoing && v.points < o.points
}

// Decided reports whether v is a forced Win or Loss.
func (v Value) Decided() bool {
	return v.kind == kindWin || v.kind == kindLoss
}

// Score returns the heuristic points and whether v holds any.
func (v Value) Score() (int, bool) {
	return v.points, v.kind == kindOngoing
}

func (v Value) String() string {
	switch v.kind {
	case kindNegInf:
		return "-Infinity"
	case kindPosInf:
		return "Infinity"
	case kindWin:
		return "Win"
	case kindLoss:
		return "Loss"
	}
	return strconv.Itoa(v.points)
}

func maxValue(a, b Value) Value {
	if a.Less(b) {
		return b
	}
	return a
}

func minValue(a, b Value) Value {
	if b.Less(a) {
		return b
	}
	return a
}
