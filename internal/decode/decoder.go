// Package decode turns raw process memory into immutable telemetry
// snapshots. The decoder owns the per-session caches: identities are re-read
// only when the slot count changes, session metadata is resolved once and
// then pinned for the lifetime of the session.
package decode

import (
	"errors"
	"fmt"
	"time"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/memio"
	"github.com/oval-labs/simtap/internal/offsets"
	"github.com/oval-labs/simtap/internal/ports"
)

// TrackNamer resolves a track index to a track folder name for builds whose
// current-track field is an index into the installed track list. Supplied by
// the caller; the decoder never touches the filesystem.
type TrackNamer func(index int) (string, error)

// Decoder produces one Snapshot per Decode call from an attached accessor
// and the session's offset table. Not safe for concurrent use; the polling
// worker is its only caller.
type Decoder struct {
	acc   *memio.Accessor
	tab   offsets.Table
	log   ports.Logger
	namer TrackNamer

	seq         uint64
	cachedCount int
	identities  map[int]domain.Identity
	session     *domain.SessionInfo

	// Read-failure dedup: log the first occurrence, count repeats silently,
	// log the recovery with the repeat count.
	lastErr  string
	errCount int
}

// Option configures optional decoder behavior.
type Option func(*Decoder)

// WithTrackNamer supplies the index-to-name mapping for builds that store a
// track index instead of a name.
func WithTrackNamer(n TrackNamer) Option {
	return func(d *Decoder) { d.namer = n }
}

// New creates a decoder bound to an attached accessor and a session table.
func New(acc *memio.Accessor, tab offsets.Table, log ports.Logger, opts ...Option) *Decoder {
	d := &Decoder{acc: acc, tab: tab, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads the full race state and returns one immutable snapshot.
//
// Failure policy: a slot-local problem downgrades that slot to StatusInvalid
// and decoding continues; a failed global read aborts this tick only and is
// retried next tick; ErrProcessExited is passed through untouched so the
// scheduler can end the session.
func (d *Decoder) Decode() (*domain.Snapshot, error) {
	snap, err := d.decode()
	if err != nil {
		if errors.Is(err, domain.ErrProcessExited) {
			return nil, err
		}
		if msg := err.Error(); msg != d.lastErr {
			d.log.Warn("memory read failed", ports.Err(err))
			d.lastErr = msg
			d.errCount = 1
		} else {
			d.errCount++
		}
		return nil, err
	}
	if d.lastErr != "" {
		d.log.Info("memory read recovered", ports.Int("failures", d.errCount))
		d.lastErr = ""
		d.errCount = 0
	}
	return snap, nil
}

func (d *Decoder) decode() (*domain.Snapshot, error) {
	started := time.Now()

	rawCount, err := d.readCarCount()
	if err != nil {
		return nil, err
	}
	displayCount := rawCount - 1

	totalLaps, err := d.readTotalLaps()
	if err != nil {
		return nil, err
	}

	if err := d.refreshIdentities(rawCount); err != nil {
		return nil, err
	}

	// One bulk read for the whole grid: N contiguous blocks, one syscall.
	blob, err := d.acc.ReadBytes(d.tab.CarStateBase, rawCount*d.tab.CarStateSize)
	if err != nil {
		return nil, err
	}

	entities := make(map[int]domain.EntityState, rawCount)
	for slot := 0; slot < rawCount; slot++ {
		block := blob[slot*d.tab.CarStateSize : (slot+1)*d.tab.CarStateSize]
		entities[slot] = decodeBlock(slot, block, d.tab, totalLaps)
	}

	orderVals, err := d.acc.ReadU32s(d.tab.RunOrderBase, rawCount)
	if err != nil {
		return nil, err
	}
	order := decodeOrder(orderVals, rawCount, displayCount, d.tab)

	applyGaps(entities, order)

	if d.session == nil {
		session, err := d.resolveSession()
		if err != nil {
			return nil, err
		}
		d.session = &session
	}

	clockMS := int64(-1)
	if d.tab.HasSessionTimer() {
		v, err := d.acc.ReadU32(d.tab.SessionTimerAddr)
		if err != nil {
			return nil, err
		}
		clockMS = int64(v)
	}

	d.seq++
	return &domain.Snapshot{
		Seq:            d.seq,
		Timestamp:      started,
		Count:          rawCount,
		DisplayCount:   displayCount,
		TotalLaps:      totalLaps,
		Order:          order,
		Identities:     d.identities,
		Entities:       entities,
		Session:        *d.session,
		SessionClockMS: clockMS,
	}, nil
}

// readCarCount reads and validates the occupied-slot count (pace car
// included).
func (d *Decoder) readCarCount() (int, error) {
	v, err := d.acc.ReadI32(d.tab.CarsAddr)
	if err != nil {
		return 0, err
	}
	n := int(v)
	if n <= 1 || n > d.tab.MaxCars {
		return 0, fmt.Errorf("invalid car count %d at 0x%X", n, d.tab.CarsAddr)
	}
	return n, nil
}

// readTotalLaps reads and validates the session's scheduled lap count.
func (d *Decoder) readTotalLaps() (int, error) {
	v, err := d.acc.ReadI32(d.tab.LapsAddr)
	if err != nil {
		return 0, err
	}
	n := int(v)
	if n <= 0 || n > d.tab.MaxLaps {
		return 0, fmt.Errorf("invalid total laps %d at 0x%X", n, d.tab.LapsAddr)
	}
	return n, nil
}

// refreshIdentities re-reads the name and number tables when the slot count
// changed since the last tick. Identity is slow-changing reference data; the
// count mismatch is the invalidation signal.
func (d *Decoder) refreshIdentities(count int) error {
	if d.identities != nil && d.cachedCount == count {
		return nil
	}
	nameBlob, err := d.acc.ReadBytes(d.tab.DriverNamesBase, count*d.tab.NameEntryBytes)
	if err != nil {
		return err
	}
	shift := d.tab.NumbersShift
	if shift < 0 {
		shift = -shift
	}
	numVals, err := d.acc.ReadU32s(d.tab.CarNumbersBase, count+shift+4)
	if err != nil {
		return err
	}
	names := decodeNames(nameBlob, count, d.tab)
	numbers := decodeNumbers(numVals, count, d.tab)
	d.identities = mergeIdentities(names, numbers, count)
	d.cachedCount = count
	return nil
}

// resolveSession reads the track identity and length. Called once per
// session; the result is pinned until reattach.
func (d *Decoder) resolveSession() (domain.SessionInfo, error) {
	length, err := d.readTrackLengthMiles()
	if err != nil {
		return domain.SessionInfo{}, err
	}
	name, err := d.readTrackName()
	if err != nil {
		return domain.SessionInfo{}, err
	}
	d.log.Info("session resolved",
		ports.String("track", name),
		ports.String("length", fmt.Sprintf("%.3f mi", length)))
	return domain.SessionInfo{TrackName: name, TrackLengthMiles: length}, nil
}

// readTrackLengthMiles converts the raw lap length (1/500ths of an inch) to
// miles.
func (d *Decoder) readTrackLengthMiles() (float64, error) {
	v, err := d.acc.ReadI32(d.tab.TrackLengthAddr)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, nil
	}
	inches := float64(v) / 500.0
	return inches / (12 * 5280), nil
}

// readTrackName reads the current track's folder name. Builds that store an
// index delegate to the caller-supplied TrackNamer.
func (d *Decoder) readTrackName() (string, error) {
	if d.tab.TrackNameByIndex {
		idx, err := d.acc.ReadI32(d.tab.CurrentTrackAddr)
		if err != nil {
			return "", err
		}
		if d.namer == nil {
			return fmt.Sprintf("track-%d", idx), nil
		}
		return d.namer(int(idx))
	}
	return d.acc.ReadCString(d.tab.CurrentTrackAddr, d.tab.TrackNameMax)
}
