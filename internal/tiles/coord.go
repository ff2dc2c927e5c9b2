package tiles

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord addresses a tile in one layer's grid.
type Coord struct {
	X, Z int
}

// String returns the tile hash used in logs and events, e.g. "x-3z12".
func (c Coord) String() string {
	return fmt.Sprintf("x%dz%d", c.X, c.Z)
}

// PathFromCoords encodes a coordinate into the directory path the map
// renderer writes tiles to. Every digit becomes its own directory level:
// (-12, 3) -> "x-1/2/z3".
func PathFromCoords(x, z int) string {
	var b strings.Builder
	b.WriteByte('x')
	writeSplit(&b, x)
	b.WriteByte('z')
	writeSplit(&b, z)

	path := b.String()
	return path[:len(path)-1]
}

func writeSplit(b *strings.Builder, n int) {
	s := strconv.Itoa(n)
	if s[0] == '-' {
		b.WriteByte('-')
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		b.WriteByte('/')
	}
}

// CoordsFromPath decodes a path produced by PathFromCoords.
func CoordsFromPath(path string) (x, z int, err error) {
	if !strings.HasPrefix(path, "x") {
		return 0, 0, fmt.Errorf("tile path %q: missing x prefix", path)
	}
	i := strings.Index(path, "/z")
	if i < 0 {
		return 0, 0, fmt.Errorf("tile path %q: missing z segment", path)
	}

	x, err = parseSplit(path[1:i])
	if err != nil {
		return 0, 0, fmt.Errorf("tile path %q: %w", path, err)
	}
	z, err = parseSplit(path[i+2:])
	if err != nil {
		return 0, 0, fmt.Errorf("tile path %q: %w", path, err)
	}
	return x, z, nil
}

func parseSplit(s string) (int, error) {
	joined := strings.ReplaceAll(s, "/", "")
	if joined == "" || joined == "-" {
		return 0, fmt.Errorf("empty coordinate")
	}
	return strconv.Atoi(joined)
}
