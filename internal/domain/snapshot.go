package domain

import "time"

// Status classifies a slot within one snapshot.
type Status int

const (
	// StatusActive means the car is running on track.
	StatusActive Status = iota

	// StatusPitted means the car is on the pit lane line while still running.
	StatusPitted

	// StatusRetired means the car left the session; RetireReason says why.
	StatusRetired

	// StatusInvalid means the slot's block failed sanity checks this tick.
	// The slot is still present in the snapshot so the entity map always has
	// exactly Count entries.
	StatusInvalid
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusPitted:
		return "Pitted"
	case StatusRetired:
		return "Retired"
	case StatusInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Identity is the slow-changing reference data for one slot. It is read once
// per session and re-read only when the slot count changes.
type Identity struct {
	// Slot is the index of the car's block in the car-state array.
	Slot int

	// Name is the driver name, NUL-trimmed ASCII. May be empty.
	Name string

	// CarNumber is the car number, or -1 when the table had no entry.
	CarNumber int
}

// GapKind discriminates how the Gap of an entity should be interpreted.
type GapKind int

const (
	// GapNone means no gap could be derived this tick.
	GapNone GapKind = iota

	// GapLeader marks the ranked leader; the gap value is zero by definition.
	GapLeader

	// GapTime is a time interval to the leader in milliseconds.
	GapTime

	// GapLaps means the car is one or more laps down.
	GapLaps

	// GapPitting means the car is on its pit lane line; no interval applies.
	GapPitting

	// GapRetired means the car is out of the session; Reason names the cause.
	GapRetired
)

// Gap is the derived interval of one entity to the ranked leader.
type Gap struct {
	Kind   GapKind
	TimeMS int64  // set when Kind == GapTime; may be negative for cars ahead on the road
	Laps   int    // set when Kind == GapLaps
	Reason string // set when Kind == GapRetired
}

// EntityState is the decoded per-slot record for one poll tick. Built fresh
// every tick from the raw block and the identity cache; never mutated after
// construction.
type EntityState struct {
	Slot   int
	Status Status

	// Lap accounting.
	LapsLeft      uint32
	LapsCompleted int
	LapsDown      int

	// Last completed lap, derived from the two per-car lap clocks with
	// modulo-2^32 subtraction. LastLapValid is false when either clock held
	// the sentinel value.
	LastLapMS    uint32
	LastLapValid bool

	// Raw lap clocks. The Valid flags are false when the field held the
	// not-yet-set sentinel.
	LapStartClock   uint32
	LapEndClock     uint32
	StartClockValid bool
	EndClockValid   bool

	// RetireReason is the retirement code (0 = running, 1..16 = retired).
	RetireReason int

	// CurrentLP is the LP line the car is following.
	CurrentLP int

	// FuelLaps is the estimated laps of fuel remaining.
	FuelLaps int

	// Track position in native units.
	DLat  int32
	DLong int32

	// Gap to the ranked leader, derived after all slots decode.
	Gap Gap

	// Raw is the verbatim telemetry block for consumers that need fields the
	// decoder does not surface. It is a copy owned by this EntityState.
	Raw []byte
}

// SessionInfo is session-scoped metadata, resolved once after attach and
// never re-resolved until a new session starts.
type SessionInfo struct {
	// TrackName is the track's folder name, e.g. "INDY500".
	TrackName string

	// TrackLengthMiles is the lap length in miles.
	TrackLengthMiles float64
}

// Snapshot is the aggregate root handed to consumers: one immutable telemetry
// result for a single poll tick.
type Snapshot struct {
	// Seq increases by one for every snapshot produced in a session.
	Seq uint64

	// Timestamp is the wall-clock time the decode started.
	Timestamp time.Time

	// Count is the number of occupied slots, including the pace car.
	Count int

	// DisplayCount excludes the pace car (slot 0).
	DisplayCount int

	// TotalLaps is the session's scheduled lap count.
	TotalLaps int

	// Order lists slot indices in running order, pace car excluded, padded
	// with -1 to exactly DisplayCount entries.
	Order []int

	// Identities maps slot index to driver identity for slots 0..Count-1.
	Identities map[int]Identity

	// Entities maps slot index to decoded state. Always exactly Count
	// entries; slots that failed to decode are present with StatusInvalid.
	Entities map[int]EntityState

	// Session is the cached session metadata.
	Session SessionInfo

	// SessionClockMS is the session-wide clock in milliseconds, or -1 when
	// the build's offset table does not expose one.
	SessionClockMS int64
}
