// Package offsets holds the version-keyed memory layout of the supported
// game builds. A Table is an external contract: one per build, immutable,
// selected exactly once at attach time.
package offsets

import (
	"fmt"
	"strings"

	"github.com/oval-labs/simtap/internal/memio"
)

// Version is a closed enumeration of the supported builds. The original
// dispatch was keyed on a detected build string; here every supported build
// carries its own Table value and selection happens once at attach, never
// per field access.
type Version int

const (
	// VersionDOS is the original DOS release.
	VersionDOS Version = iota

	// VersionREND32A is the rendition 32A build.
	VersionREND32A

	// VersionWINDY is the Windows build.
	VersionWINDY
)

// String returns the canonical version name.
func (v Version) String() string {
	switch v {
	case VersionDOS:
		return "DOS"
	case VersionREND32A:
		return "REND32A"
	case VersionWINDY:
		return "WINDY"
	default:
		return "Unknown"
	}
}

// ParseVersion maps a case-insensitive version name to a Version.
func ParseVersion(s string) (Version, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOS":
		return VersionDOS, nil
	case "REND32A":
		return VersionREND32A, nil
	case "WINDY", "WINDY101":
		return VersionWINDY, nil
	default:
		return 0, fmt.Errorf("unsupported version %q (want DOS, REND32A or WINDY)", s)
	}
}

// exeSizes maps known executable file sizes to their build. Used to validate
// a configured version against the installed game.
var exeSizes = map[int64]Version{
	1142387: VersionDOS,
	1916928: VersionWINDY,
	1109095: VersionREND32A,
}

// VersionForExeSize returns the build matching an executable's byte size.
func VersionForExeSize(size int64) (Version, bool) {
	v, ok := exeSizes[size]
	return v, ok
}

// KnownExeSizes lists the recognized executable sizes for error messages.
func KnownExeSizes() map[int64]Version {
	out := make(map[int64]Version, len(exeSizes))
	for k, v := range exeSizes {
		out[k] = v
	}
	return out
}

// Table describes where everything lives for one build. All address fields
// are exe-relative offsets; the signature scan supplies the base.
type Table struct {
	Version Version

	// Signature occurs exactly once within the loaded image; the load base
	// is SignatureOffset bytes before the match.
	Signature       memio.Pattern
	SignatureOffset uint32

	// WindowKeywords are the default window-title keywords for this build.
	WindowKeywords []string

	// Global addresses.
	RunOrderBase     uint32
	CarNumbersBase   uint32
	DriverNamesBase  uint32
	CarsAddr         uint32
	LapsAddr         uint32
	CarStateBase     uint32
	TrackLengthAddr  uint32
	CurrentTrackAddr uint32
	SessionTimerAddr uint32 // 0 when the build exposes no session clock

	// TrackNameByIndex is true when CurrentTrackAddr holds an integer index
	// into the installed track list instead of a NUL-terminated name. The
	// index-to-name mapping is supplied by the caller, not read from disk
	// here.
	TrackNameByIndex bool

	// Identity table layout.
	NameEntryBytes int
	NamesShift     int
	NumbersShift   int

	// OrderIndexBase is subtracted from each raw run-order value to obtain a
	// slot index. 0 for every supported build: the table holds slot indices
	// directly.
	OrderIndexBase int

	// Car-state block layout.
	CarStateSize int

	// Field offsets within one car-state block, in bytes.
	FieldLapsLeft      uint32
	FieldLapClockStart uint32
	FieldLapClockEnd   uint32
	FieldLapsDown      uint32
	FieldCarStatus     uint32
	FieldCurrentLap    uint32
	FieldCurrentLP     uint32
	FieldFuelLaps      uint32
	FieldDLat          uint32
	FieldDLong         uint32

	// Sanity bounds for global counters.
	MaxCars int
	MaxLaps int

	// TrackNameMax bounds the NUL-terminated track-name read.
	TrackNameMax int
}

// HasSessionTimer reports whether this build exposes a session-wide clock.
func (t Table) HasSessionTimer() bool { return t.SessionTimerAddr != 0 }

// versionSignature is shared by all supported builds; only the displacement
// to the load base differs.
var versionSignature = memio.MustPattern("6C 69 63 65 6E 73 65 20 77 69 74 68 20 42 6F 62")

// common holds the layout shared across builds.
func common(v Version) Table {
	return Table{
		Version:        v,
		Signature:      versionSignature,
		NameEntryBytes: 26,
		NamesShift:     -1,
		NumbersShift:   -1,
		OrderIndexBase: 0,
		CarStateSize:   0x214,

		FieldLapsLeft:      32 * 4,
		FieldLapClockStart: 23 * 4,
		FieldLapClockEnd:   22 * 4,
		FieldLapsDown:      24 * 4,
		FieldCarStatus:     37 * 4,
		FieldCurrentLap:    38 * 4,
		FieldCurrentLP:     52 * 4,
		FieldFuelLaps:      35 * 4,
		FieldDLat:          11 * 4,
		FieldDLong:         31 * 4,

		MaxCars:      200,
		MaxLaps:      10000,
		TrackNameMax: 32,
	}
}

// ForVersion returns the immutable table for a build.
func ForVersion(v Version) (Table, error) {
	switch v {
	case VersionREND32A:
		t := common(v)
		t.SignatureOffset = 0xB1C0C
		t.WindowKeywords = []string{"dosbox", "cart"}
		t.RunOrderBase = 0x0EF638
		t.CarNumbersBase = 0x0EDE88
		t.DriverNamesBase = 0x0EDF3E
		t.CarsAddr = 0x0E71A8
		t.LapsAddr = 0x0B8C98
		t.CarStateBase = 0x0E1DC4
		t.TrackLengthAddr = 0x0F15BC
		t.CurrentTrackAddr = 0x0F823D
		return t, nil
	case VersionDOS:
		t := common(v)
		t.SignatureOffset = 0xA0D78
		t.WindowKeywords = []string{"dosbox", "indycar"}
		t.RunOrderBase = 0x0DAA1C
		t.CarNumbersBase = 0x0CB700
		t.DriverNamesBase = 0x0CAD8E
		t.CarsAddr = 0x0DAA18
		t.LapsAddr = 0x0AD578
		t.CarStateBase = 0x0D5638
		t.TrackLengthAddr = 0x0DFFB4
		t.CurrentTrackAddr = 0x0E2EE9
		t.SessionTimerAddr = 0x0DC61C
		return t, nil
	case VersionWINDY:
		t := common(v)
		t.SignatureOffset = 0x4E2199
		t.WindowKeywords = []string{"cart racing"}
		t.RunOrderBase = 0x50FD64
		t.CarNumbersBase = 0x515120
		t.DriverNamesBase = 0x5153B6
		t.CarsAddr = 0x524664
		t.LapsAddr = 0x4F1DBC
		t.CarStateBase = 0x51DC5C
		t.TrackLengthAddr = 0x527C00
		t.CurrentTrackAddr = 0x527D58
		t.TrackNameByIndex = true
		return t, nil
	default:
		return Table{}, fmt.Errorf("no offset table for version %d", v)
	}
}
