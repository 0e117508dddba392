package game

import (
	"fmt"
	"strconv"
	"strings"
)

// PitName returns the external label of ring index i on a board with n pits
// per side. Player one's pits are B2..B(n+1), player two's are A2..A(n+1);
// both rows are numbered left to right as displayed.
func PitName(n, i int) string {
	if i < n {
		return "B" + strconv.Itoa(i+2)
	}
	return "A" + strconv.Itoa(2*n-i+1)
}

// PitNames maps a sequence of ring indices to labels.
func PitNames(n int, pits []int) []string {
	out := make([]string, len(pits))
	for i, p := range pits {
		out[i] = PitName(n, p)
	}
	return out
}

// ParsePitName is the inverse of PitName.
func ParsePitName(n int, name string) (int, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return 0, fmt.Errorf("bad pit name %q", name)
	}
	num, err := strconv.Atoi(name[1:])
	if err != nil || num < 2 || num > n+1 {
		return 0, fmt.Errorf("bad pit name %q for %d pits per side", name, n)
	}
	switch name[0] {
	case 'B', 'b':
		return num - 2, nil
	case 'A', 'a':
		return 2*n - num + 1, nil
	}
	return 0, fmt.Errorf("bad pit name %q", name)
}
