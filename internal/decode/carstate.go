package decode

import (
	"encoding/binary"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/offsets"
)

// clockSentinel marks a lap clock the game has not written yet. Interpreted
// signed it reads as -16777216.
const clockSentinel = 0xFF000000

// pitLaneLP is the LP line a running car follows while on the pit lane.
const pitLaneLP = 3

// maxLapsDown bounds the laps-down field; values beyond it are garbage from
// a slot that is not in a race session.
const maxLapsDown = 100

// maxRetireCode is the highest defined retirement reason.
const maxRetireCode = 16

// WrapDelta32 returns cur - prev modulo 2^32. Lap clocks are free-running
// 32-bit counters; a naive signed subtraction turns a wraparound into a huge
// negative delta, so every clock difference goes through here.
func WrapDelta32(prev, cur uint32) uint32 {
	return cur - prev
}

// u32At and i32At read little-endian fields out of a raw block.
func u32At(block []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(block[off:])
}

func i32At(block []byte, off uint32) int32 {
	return int32(binary.LittleEndian.Uint32(block[off:]))
}

// decodeBlock turns one raw car-state block into an EntityState. A block
// that fails sanity checks yields StatusInvalid with the raw bytes retained;
// it never aborts the surrounding snapshot.
func decodeBlock(slot int, block []byte, tab offsets.Table, totalLaps int) domain.EntityState {
	st := domain.EntityState{
		Slot: slot,
		Raw:  append([]byte(nil), block...),
	}
	if len(block) < tab.CarStateSize {
		st.Status = domain.StatusInvalid
		return st
	}

	st.LapsLeft = u32At(block, tab.FieldLapsLeft)

	currentLap := int(u32At(block, tab.FieldCurrentLap)) - 1
	if currentLap < 0 {
		currentLap = 0
	}
	if currentLap > tab.MaxLaps {
		// Impossible lap count: the slot holds garbage this tick.
		st.Status = domain.StatusInvalid
		return st
	}
	st.LapsCompleted = currentLap

	start := u32At(block, tab.FieldLapClockStart)
	end := u32At(block, tab.FieldLapClockEnd)
	st.LapStartClock, st.StartClockValid = start, start != clockSentinel
	st.LapEndClock, st.EndClockValid = end, end != clockSentinel
	if st.StartClockValid && st.EndClockValid {
		st.LastLapMS = WrapDelta32(start, end)
		st.LastLapValid = true
	}

	if down := u32At(block, tab.FieldLapsDown); down <= maxLapsDown {
		st.LapsDown = int(down)
	}

	if code := u32At(block, tab.FieldCarStatus); code <= maxRetireCode {
		st.RetireReason = int(code)
	}

	st.CurrentLP = int(u32At(block, tab.FieldCurrentLP))
	st.FuelLaps = int(u32At(block, tab.FieldFuelLaps))
	st.DLat = i32At(block, tab.FieldDLat)
	st.DLong = i32At(block, tab.FieldDLong)

	switch {
	case st.RetireReason > 0:
		st.Status = domain.StatusRetired
	case st.CurrentLP == pitLaneLP:
		st.Status = domain.StatusPitted
	default:
		st.Status = domain.StatusActive
	}
	return st
}
