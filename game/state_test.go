package game

import (
	"strings"
	"testing"
)

func TestPitName_RoundTrip(t *testing.T) {
	for n := 1; n <= 10; n++ {
		seen := map[string]bool{}
		for i := 0; i < 2*n; i++ {
			name := PitName(n, i)
			if seen[name] {
				t.Fatalf("n=%d duplicate label %s", n, name)
			}
			seen[name] = true

			got, err := ParsePitName(n, name)
			if err != nil {
				t.Fatalf("ParsePitName(%d,%q): %v", n, name, err)
			}
			if got != i {
				t.Fatalf("ParsePitName(%d,%q)=%d want=%d", n, name, got, i)
			}
		}
	}
}

func TestPitName_Layout(t *testing.T) {
	cases := []struct {
		i    int
		want string
	}{
		{0, "B2"}, {1, "B3"}, {2, "B4"},
		{3, "A4"}, {4, "A3"}, {5, "A2"},
	}
	for _, tc := range cases {
		if got := PitName(3, tc.i); got != tc.want {
			t.Fatalf("PitName(3,%d)=%s want=%s", tc.i, got, tc.want)
		}
	}
	if got := strings.Join(PitNames(3, []int{2, 5}), ","); got != "B4,A2" {
		t.Fatalf("PitNames=%s", got)
	}
}

func TestParsePitName_Rejects(t *testing.T) {
	for _, s := range []string{"", "B", "B1", "B5", "C2", "Ax", "A0"} {
		if _, err := ParsePitName(3, s); err == nil {
			t.Fatalf("ParsePitName(3,%q) accepted", s)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := &GameState{Pits: []int{1, 2, 3, 4}, Stores: [2]int{5, 6}, ToMove: PlayerTwo}
	c := s.Clone()
	c.Pits[0] = 99
	c.Stores[1] = 0
	if s.Pits[0] != 1 || s.Stores[1] != 6 {
		t.Fatalf("clone shares storage: %+v", s)
	}
	if c.ToMove != PlayerTwo {
		t.Fatalf("ToMove not copied")
	}
	var nilState *GameState
	if nilState.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}

func TestGeometry(t *testing.T) {
	s := &GameState{Pits: []int{1, 2, 3, 4, 5, 6}, Stores: [2]int{7, 8}, ToMove: PlayerOne}
	if s.N() != 3 {
		t.Fatalf("N=%d", s.N())
	}
	if lo, hi := s.Side(PlayerTwo); lo != 3 || hi != 6 {
		t.Fatalf("Side(2)=[%d,%d)", lo, hi)
	}
	for i := 0; i < 6; i++ {
		if m := s.Mirror(i); s.Mirror(m) != i || s.Owner(m) == s.Owner(i) {
			t.Fatalf("mirror of %d is %d", i, m)
		}
	}
	if s.SideSeeds(PlayerOne) != 6 || s.SideSeeds(PlayerTwo) != 15 {
		t.Fatalf("side seeds %d/%d", s.SideSeeds(PlayerOne), s.SideSeeds(PlayerTwo))
	}
	if s.TotalSeeds() != 36 || s.Store(PlayerTwo) != 8 {
		t.Fatalf("totals wrong")
	}
}

func TestFormatBoard(t *testing.T) {
	s := &GameState{Pits: []int{1, 2, 3, 4, 5, 6}, Stores: [2]int{7, 8}, ToMove: PlayerOne}
	want := "8\n" +
		"    6    5    4\n" +
		"    1    2    3\n" +
		"                   7\n" +
		"Player 1 to move"
	if got := FormatBoard(s); got != want {
		t.Fatalf("FormatBoard mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseTask(t *testing.T) {
	for _, s := range []string{"3", "alphabeta"} {
		task, err := ParseTask(s)
		if err != nil || task != TaskAlphaBeta {
			t.Fatalf("ParseTask(%q)=%v,%v", s, task, err)
		}
	}
	if _, err := ParseTask("5"); err == nil {
		t.Fatalf("ParseTask accepted 5")
	}
}
