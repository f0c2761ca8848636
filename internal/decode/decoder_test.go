package decode

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oval-labs/simtap/internal/adapters/proc"
	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/memio"
	"github.com/oval-labs/simtap/internal/offsets"
	"github.com/oval-labs/simtap/internal/ports"
)

const testBase = 0x00300000

// captureLogger records messages per level.
type captureLogger struct {
	debugs, infos, warns, errs []string
}

func (l *captureLogger) Debug(msg string, _ ...ports.Field) { l.debugs = append(l.debugs, msg) }
func (l *captureLogger) Info(msg string, _ ...ports.Field)  { l.infos = append(l.infos, msg) }
func (l *captureLogger) Warn(msg string, _ ...ports.Field)  { l.warns = append(l.warns, msg) }
func (l *captureLogger) Error(msg string, _ ...ports.Field) { l.errs = append(l.errs, msg) }

// fixture maps a fake game image and exposes field-level writers keyed off
// the offset table.
type fixture struct {
	t   *testing.T
	tab offsets.Table
	img *proc.Image
	acc *memio.Accessor
	log *captureLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tab := rendTable(t)
	img := proc.NewImage(testBase, make([]byte, 0x100000))
	return &fixture{
		t:   t,
		tab: tab,
		img: img,
		acc: memio.NewAccessor(img, testBase),
		log: &captureLogger{},
	}
}

func (f *fixture) decoder(opts ...Option) *Decoder {
	return New(f.acc, f.tab, f.log, opts...)
}

func (f *fixture) putU32(off uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	f.img.Poke(testBase+uintptr(off), b[:])
}

func (f *fixture) putBytes(off uint32, b []byte) {
	f.img.Poke(testBase+uintptr(off), b)
}

func (f *fixture) setCount(n int)    { f.putU32(f.tab.CarsAddr, uint32(n)) }
func (f *fixture) setLaps(n int)     { f.putU32(f.tab.LapsAddr, uint32(n)) }
func (f *fixture) setTrackRaw(v int) { f.putU32(f.tab.TrackLengthAddr, uint32(v)) }

func (f *fixture) setTrackName(name string) {
	f.putBytes(f.tab.CurrentTrackAddr, append([]byte(name), 0))
}

// setName writes slot s's driver name into its shifted table entry.
func (f *fixture) setName(slot int, name string) {
	entry := slot + f.tab.NamesShift
	off := f.tab.DriverNamesBase + uint32(entry*f.tab.NameEntryBytes)
	b := make([]byte, f.tab.NameEntryBytes)
	copy(b, name)
	f.putBytes(off, b)
}

func (f *fixture) setNumber(slot, num int) {
	entry := slot + f.tab.NumbersShift
	f.putU32(f.tab.CarNumbersBase+uint32(entry*4), uint32(num))
}

// setOrder writes the running-order table in the build's index base.
func (f *fixture) setOrder(slots ...int) {
	for i, slot := range slots {
		f.putU32(f.tab.RunOrderBase+uint32(i*4), uint32(slot+f.tab.OrderIndexBase))
	}
}

type car struct {
	lap        int // completed laps
	clockStart uint32
	clockEnd   uint32
	lapsDown   int
	retire     int
	lp         int
	fuel       int
}

func (f *fixture) setCar(slot int, c car) {
	base := f.tab.CarStateBase + uint32(slot*f.tab.CarStateSize)
	f.putU32(base+f.tab.FieldCurrentLap, uint32(c.lap+1))
	f.putU32(base+f.tab.FieldLapClockStart, c.clockStart)
	f.putU32(base+f.tab.FieldLapClockEnd, c.clockEnd)
	f.putU32(base+f.tab.FieldLapsDown, uint32(c.lapsDown))
	f.putU32(base+f.tab.FieldCarStatus, uint32(c.retire))
	f.putU32(base+f.tab.FieldCurrentLP, uint32(c.lp))
	f.putU32(base+f.tab.FieldFuelLaps, uint32(c.fuel))
}

// threeCarGrid arranges a pace car plus drivers A, B, C on lap 10 of 60 at a
// one-mile track.
func (f *fixture) threeCarGrid() {
	f.setCount(4)
	f.setLaps(60)
	f.setTrackRaw(31680000) // 1 mile in 1/500ths of an inch
	f.setTrackName("MICHIGAN")

	f.setName(1, "Driver A")
	f.setName(2, "Driver B")
	f.setName(3, "Driver C")
	f.setNumber(1, 31)
	f.setNumber(2, 2)
	f.setNumber(3, 6)

	f.setCar(0, car{lap: 10, clockStart: 100000, clockEnd: 160000})
	f.setCar(1, car{lap: 10, clockStart: 540000, clockEnd: 600000})
	f.setCar(2, car{lap: 10, clockStart: 541200, clockEnd: 601500})
	f.setCar(3, car{lap: 9, clockStart: 482000, clockEnd: 542000})
	f.setOrder(0, 1, 2, 3)
}

func TestDecodeFullSnapshot(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	dec := f.decoder()

	snap, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if snap.Seq != 1 {
		t.Errorf("Seq = %d, want 1", snap.Seq)
	}
	if snap.Count != 4 || snap.DisplayCount != 3 {
		t.Errorf("Count/DisplayCount = %d/%d, want 4/3", snap.Count, snap.DisplayCount)
	}
	if snap.TotalLaps != 60 {
		t.Errorf("TotalLaps = %d, want 60", snap.TotalLaps)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, snap.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Entities) != snap.Count {
		t.Errorf("entity map has %d entries, want %d", len(snap.Entities), snap.Count)
	}

	wantIDs := map[int]domain.Identity{
		0: {Slot: 0, Name: "", CarNumber: -1},
		1: {Slot: 1, Name: "Driver A", CarNumber: 31},
		2: {Slot: 2, Name: "Driver B", CarNumber: 2},
		3: {Slot: 3, Name: "Driver C", CarNumber: 6},
	}
	if diff := cmp.Diff(wantIDs, snap.Identities); diff != "" {
		t.Errorf("identities mismatch (-want +got):\n%s", diff)
	}

	if g := snap.Entities[1].Gap; g.Kind != domain.GapLeader {
		t.Errorf("leader gap = %+v", g)
	}
	if g := snap.Entities[2].Gap; g.Kind != domain.GapTime || g.TimeMS != 1500 {
		t.Errorf("P2 gap = %+v, want +1500ms", g)
	}
	if g := snap.Entities[3].Gap; g.Kind != domain.GapTime || g.TimeMS != 2000 {
		t.Errorf("P3 gap = %+v, want +2000ms", g)
	}
	if lap := snap.Entities[1]; !lap.LastLapValid || lap.LastLapMS != 60000 {
		t.Errorf("leader last lap = %d (valid=%v), want 60000", lap.LastLapMS, lap.LastLapValid)
	}

	if snap.Session.TrackName != "MICHIGAN" {
		t.Errorf("TrackName = %q", snap.Session.TrackName)
	}
	if snap.Session.TrackLengthMiles < 0.999 || snap.Session.TrackLengthMiles > 1.001 {
		t.Errorf("TrackLengthMiles = %f, want 1.0", snap.Session.TrackLengthMiles)
	}
	if snap.SessionClockMS != -1 {
		t.Errorf("SessionClockMS = %d, want -1 for builds without a timer", snap.SessionClockMS)
	}

	// Sequence numbers increase per decode.
	snap2, err := dec.Decode()
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if snap2.Seq != 2 {
		t.Errorf("second Seq = %d, want 2", snap2.Seq)
	}
}

func TestDecodeInvalidSlotDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	// Slot 2's lap counter holds garbage this tick.
	base := f.tab.CarStateBase + uint32(2*f.tab.CarStateSize)
	f.putU32(base+f.tab.FieldCurrentLap, uint32(f.tab.MaxLaps+100))

	snap, err := f.decoder().Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Entities[2].Status != domain.StatusInvalid {
		t.Errorf("slot 2 status = %v, want Invalid", snap.Entities[2].Status)
	}
	if snap.Entities[1].Status != domain.StatusActive || snap.Entities[3].Status != domain.StatusActive {
		t.Error("healthy slots must decode despite a bad neighbor")
	}
	if len(snap.Entities) != snap.Count {
		t.Errorf("entity map has %d entries, want %d", len(snap.Entities), snap.Count)
	}
}

func TestDecodeCarCountBounds(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{"zero", 0},
		{"only pace car", 1},
		{"negative", -3},
		{"beyond max", 201},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.threeCarGrid()
			f.setCount(tt.count)

			if _, err := f.decoder().Decode(); err == nil {
				t.Errorf("expected error for count %d", tt.count)
			}
		})
	}
}

func TestDecodeTotalLapsBounds(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	f.setLaps(0)

	if _, err := f.decoder().Decode(); err == nil {
		t.Error("expected error for zero total laps")
	}
}

func TestDecodeIdentityCache(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	dec := f.decoder()

	if _, err := dec.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// Same count: the name table is not re-read, the cache holds.
	f.setName(1, "Changed")
	snap, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Identities[1].Name != "Driver A" {
		t.Errorf("identity re-read without a count change: %q", snap.Identities[1].Name)
	}

	// Count change invalidates the cache.
	f.setCount(3)
	f.setOrder(0, 1, 2)
	snap, err = dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Identities[1].Name != "Changed" {
		t.Errorf("identity not refreshed after count change: %q", snap.Identities[1].Name)
	}
	if snap.Count != 3 {
		t.Errorf("Count = %d, want 3", snap.Count)
	}
}

func TestDecodeSessionResolvedOnce(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	dec := f.decoder()

	if _, err := dec.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	f.setTrackName("LAGUNA")
	snap, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Session.TrackName != "MICHIGAN" {
		t.Errorf("session metadata must stay pinned, got %q", snap.Session.TrackName)
	}
}

func TestDecodeTrackNameByIndex(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	f.tab.TrackNameByIndex = true
	f.putU32(f.tab.CurrentTrackAddr, 7)

	dec := f.decoder(WithTrackNamer(func(idx int) (string, error) {
		if idx != 7 {
			t.Errorf("namer got index %d, want 7", idx)
		}
		return "SURFERS", nil
	}))

	snap, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Session.TrackName != "SURFERS" {
		t.Errorf("TrackName = %q, want SURFERS", snap.Session.TrackName)
	}
}

func TestDecodeTrackIndexWithoutNamer(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	f.tab.TrackNameByIndex = true
	f.putU32(f.tab.CurrentTrackAddr, 3)

	snap, err := f.decoder().Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.Session.TrackName != "track-3" {
		t.Errorf("TrackName = %q, want placeholder track-3", snap.Session.TrackName)
	}
}

func TestDecodeSessionTimer(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	f.tab.SessionTimerAddr = 0x0F0000
	f.putU32(f.tab.SessionTimerAddr, 123456)

	snap, err := f.decoder().Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if snap.SessionClockMS != 123456 {
		t.Errorf("SessionClockMS = %d, want 123456", snap.SessionClockMS)
	}
}

func TestDecodeErrorDedup(t *testing.T) {
	f := newFixture(t)
	// Zeroed image: the car count reads 0, failing identically every tick.
	dec := f.decoder()

	for i := 0; i < 3; i++ {
		if _, err := dec.Decode(); err == nil {
			t.Fatal("expected decode error")
		}
	}
	if len(f.log.warns) != 1 {
		t.Fatalf("repeated identical failures logged %d times, want 1", len(f.log.warns))
	}

	// Recovery logs once, with the repeat count folded in.
	f.threeCarGrid()
	if _, err := dec.Decode(); err != nil {
		t.Fatalf("Decode after recovery: %v", err)
	}
	recovered := false
	for _, msg := range f.log.infos {
		if strings.Contains(msg, "recovered") {
			recovered = true
		}
	}
	if !recovered {
		t.Error("recovery was not logged")
	}
}

func TestDecodeProcessExitPassthrough(t *testing.T) {
	f := newFixture(t)
	f.threeCarGrid()
	dec := f.decoder()
	f.img.SetExited()

	_, err := dec.Decode()
	if !errors.Is(err, domain.ErrProcessExited) {
		t.Fatalf("err = %v, want ErrProcessExited", err)
	}
	if len(f.log.warns) != 0 {
		t.Error("process exit must pass through without dedup logging")
	}
}
