package memio

import (
	"context"
	"errors"
	"fmt"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/ports"
)

// scanChunkSize is the read granularity of the signature scan. Regions are
// read in chunks with a len(pattern)-1 overlap so matches spanning a chunk
// boundary are not lost.
const scanChunkSize = 64 * 1024

// ScanPolicy controls how multiple signature matches are resolved.
type ScanPolicy int

const (
	// FirstMatch takes the first occurrence in address order and stops.
	FirstMatch ScanPolicy = iota

	// UniqueMatch scans everything and fails with ErrAmbiguousSignature if
	// the pattern occurs more than once.
	UniqueMatch
)

// FindSignature scans the readable committed regions of mem for the pattern
// and returns the absolute address of the match. Unreadable stretches inside
// a region are skipped, not fatal: the target may unmap pages between the
// region query and the read.
func FindSignature(ctx context.Context, mem ports.ProcessMemory, pat Pattern, policy ScanPolicy) (uintptr, error) {
	if pat.Len() == 0 {
		return 0, fmt.Errorf("%w: empty pattern", domain.ErrSignatureNotFound)
	}
	regions, err := mem.Regions()
	if err != nil {
		return 0, fmt.Errorf("enumerate regions: %w", err)
	}

	// FirstMatch stops at one hit; UniqueMatch needs a second hit to prove
	// ambiguity, wherever it lives — the same region or a later one.
	limit := 1
	if policy == UniqueMatch {
		limit = 2
	}

	var found []uintptr
	for _, reg := range regions {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		hits, err := scanRegion(ctx, mem, reg, pat, limit-len(found))
		if err != nil {
			return 0, err
		}
		found = append(found, hits...)
		if policy == FirstMatch && len(found) > 0 {
			return found[0], nil
		}
		if len(found) >= 2 {
			return 0, fmt.Errorf("%w: matches at 0x%X and 0x%X", domain.ErrAmbiguousSignature, found[0], found[1])
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return 0, domain.ErrSignatureNotFound
}

// scanRegion searches one region chunk by chunk, carrying an overlap of
// len(pattern)-1 bytes between chunks, and returns up to max matches in
// address order. The overlap is one byte shorter than the pattern, so a match
// is counted exactly once no matter which chunk boundary it straddles.
func scanRegion(ctx context.Context, mem ports.ProcessMemory, reg ports.Region, pat Pattern, max int) ([]uintptr, error) {
	overlap := pat.Len() - 1
	var leftover []byte
	var hits []uintptr

	buf := make([]byte, scanChunkSize)
	pos := reg.Base
	end := reg.Base + uintptr(reg.Size)

	for pos < end {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := int(end - pos)
		if n > scanChunkSize {
			n = scanChunkSize
		}
		read, err := mem.ReadAt(pos, buf[:n])
		if err != nil {
			if errors.Is(err, domain.ErrProcessExited) {
				return nil, err
			}
			// Page vanished under us; resynchronize past it.
			leftover = nil
			pos += uintptr(n)
			continue
		}
		data := append(leftover, buf[:read]...)
		for from := 0; ; {
			idx := pat.indexIn(data, from)
			if idx < 0 {
				break
			}
			hits = append(hits, pos-uintptr(len(leftover))+uintptr(idx))
			if len(hits) >= max {
				return hits, nil
			}
			from = idx + 1
		}
		if overlap > 0 && len(data) >= overlap {
			leftover = append([]byte(nil), data[len(data)-overlap:]...)
		} else {
			leftover = nil
		}
		pos += uintptr(n)
	}
	return hits, nil
}

// ResolveBase computes the executable's load base from a signature hit and
// the table's known displacement. The signature sits at a fixed offset within
// the image, so base = match - displacement regardless of where the loader
// (or the emulator's guest mapping) placed the image.
func ResolveBase(match uintptr, displacement uint32) uintptr {
	return match - uintptr(displacement)
}
