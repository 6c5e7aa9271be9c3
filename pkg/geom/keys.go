package geom

import (
	"fmt"
	"strings"
)

// EdgeKey returns the letter label of edge i: a, b, ..., z, aa, ab, ...
func EdgeKey(i int) string {
	return letters(i, 'a')
}

// CornerKey returns the letter label of corner i: A, B, ..., Z, AA, AB, ...
func CornerKey(i int) string {
	return letters(i, 'A')
}

// EdgeIndex parses an edge key back into its index.
func EdgeIndex(key string) (int, error) {
	return parseLetters(key, 'a')
}

// CornerIndex parses a corner key back into its index.
func CornerIndex(key string) (int, error) {
	return parseLetters(key, 'A')
}

// Wrap maps i into [0, n).
func Wrap(i, n int) int {
	return ((i % n) + n) % n
}

func letters(i int, base byte) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, base+byte((n-1)%26))
	}
	for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
		b[l], b[r] = b[r], b[l]
	}
	return string(b)
}

func parseLetters(key string, base byte) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("geom: empty key")
	}
	n := 0
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < base || c > base+25 {
			return 0, fmt.Errorf("geom: invalid key %q", key)
		}
		n = n*26 + int(c-base) + 1
	}
	return n - 1, nil
}

// IsEdgeKey reports whether s is a lowercase edge key.
func IsEdgeKey(s string) bool {
	return s != "" && strings.ToLower(s) == s && strings.Trim(s, "abcdefghijklmnopqrstuvwxyz") == ""
}
