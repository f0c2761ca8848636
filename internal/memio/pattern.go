// Package memio provides typed access to the target process's memory: the
// signature scan that locates the executable's load base, and the accessor
// that owns the process handle and serves exe-relative typed and bulk reads.
package memio

import (
	"fmt"
	"strings"
)

// Pattern is a byte signature with wildcard positions, e.g. "DE AD ?? EF".
// The zero Pattern matches nothing.
type Pattern struct {
	bytes []byte
	mask  []bool // true = position must match
}

// ParsePattern parses a space-separated hex signature. "??" marks a wildcard
// byte. A pattern must contain at least one literal byte and must not start
// with a wildcard.
func ParsePattern(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	p := Pattern{
		bytes: make([]byte, len(fields)),
		mask:  make([]bool, len(fields)),
	}
	literal := false
	for i, f := range fields {
		if f == "??" {
			continue
		}
		var b byte
		if _, err := fmt.Sscanf(f, "%02X", &b); err != nil {
			return Pattern{}, fmt.Errorf("pattern byte %d %q: %w", i, f, err)
		}
		p.bytes[i] = b
		p.mask[i] = true
		literal = true
	}
	if !literal {
		return Pattern{}, fmt.Errorf("pattern is all wildcards")
	}
	if !p.mask[0] {
		return Pattern{}, fmt.Errorf("pattern must not start with a wildcard")
	}
	return p, nil
}

// MustPattern is ParsePattern for static table definitions; it panics on a
// malformed signature.
func MustPattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the pattern length in bytes.
func (p Pattern) Len() int { return len(p.bytes) }

// String renders the pattern back in "DE AD ?? EF" form.
func (p Pattern) String() string {
	var sb strings.Builder
	for i := range p.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.mask[i] {
			fmt.Fprintf(&sb, "%02X", p.bytes[i])
		} else {
			sb.WriteString("??")
		}
	}
	return sb.String()
}

// matchAt reports whether the pattern matches data starting at i.
func (p Pattern) matchAt(data []byte, i int) bool {
	if i+len(p.bytes) > len(data) {
		return false
	}
	for j := range p.bytes {
		if p.mask[j] && data[i+j] != p.bytes[j] {
			return false
		}
	}
	return true
}

// indexIn returns the offset of the first match in data from position `from`,
// or -1.
func (p Pattern) indexIn(data []byte, from int) int {
	if len(p.bytes) == 0 {
		return -1
	}
	for i := from; i+len(p.bytes) <= len(data); i++ {
		if p.matchAt(data, i) {
			return i
		}
	}
	return -1
}
