package decode

import (
	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/memio"
	"github.com/oval-labs/simtap/internal/offsets"
)

// decodeNames maps slot index to driver name from the contiguous name table.
// Each entry is tab.NameEntryBytes of NUL-terminated ASCII; tab.NamesShift
// realigns slot indices to table entries.
func decodeNames(blob []byte, count int, tab offsets.Table) map[int]string {
	out := make(map[int]string, count)
	for slot := 0; slot < count; slot++ {
		entry := slot + tab.NamesShift
		start := entry * tab.NameEntryBytes
		end := start + tab.NameEntryBytes
		if start < 0 || end > len(blob) {
			out[slot] = ""
			continue
		}
		out[slot] = memio.TrimCString(blob[start:end])
	}
	return out
}

// decodeNumbers maps slot index to car number. vals is the raw i32 table,
// read slightly past count so a negative shift cannot run off the end.
// A slot with no table entry gets -1.
func decodeNumbers(vals []uint32, count int, tab offsets.Table) map[int]int {
	out := make(map[int]int, count)
	for slot := 0; slot < count; slot++ {
		entry := slot + tab.NumbersShift
		if entry < 0 || entry >= len(vals) {
			out[slot] = -1
			continue
		}
		out[slot] = int(int32(vals[entry]))
	}
	return out
}

// mergeIdentities builds the identity cache for the current count.
func mergeIdentities(names map[int]string, numbers map[int]int, count int) map[int]domain.Identity {
	out := make(map[int]domain.Identity, count)
	for slot := 0; slot < count; slot++ {
		num, ok := numbers[slot]
		if !ok {
			num = -1
		}
		out[slot] = domain.Identity{
			Slot:      slot,
			Name:      names[slot],
			CarNumber: num,
		}
	}
	return out
}

// decodeOrder translates the raw running-order table to slot indices. Raw
// values are slot indices after subtracting tab.OrderIndexBase (0 for every
// supported build); the pace car (slot 0) is dropped and the result is padded
// with -1 to exactly displayCount entries.
func decodeOrder(vals []uint32, rawCount, displayCount int, tab offsets.Table) []int {
	out := make([]int, 0, displayCount)
	for _, v := range vals {
		idx := int(int32(v)) - tab.OrderIndexBase
		if idx == 0 {
			// Pace car.
			continue
		}
		if idx < 0 || idx >= rawCount {
			continue
		}
		out = append(out, idx)
		if len(out) == displayCount {
			break
		}
	}
	for len(out) < displayCount {
		out = append(out, -1)
	}
	return out
}
