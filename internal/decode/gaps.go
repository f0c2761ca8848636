package decode

import "github.com/oval-labs/simtap/internal/domain"

// applyGaps derives each entity's gap to the ranked leader and writes it into
// the entities map before the snapshot is sealed. Pitted and retired cars are
// flagged instead of timed; lapped cars show laps down; cars on the lead lap
// get a clock-delta interval.
func applyGaps(entities map[int]domain.EntityState, order []int) {
	leaderSlot := -1
	var leader domain.EntityState
	for _, slot := range order {
		if slot < 0 {
			continue
		}
		e, ok := entities[slot]
		if !ok || e.Status == domain.StatusInvalid || e.RetireReason != 0 {
			continue
		}
		leaderSlot, leader = slot, e
		break
	}
	if leaderSlot < 0 {
		return
	}

	for slot, e := range entities {
		switch {
		case e.Status == domain.StatusInvalid:
			continue
		case e.Status == domain.StatusPitted:
			e.Gap = domain.Gap{Kind: domain.GapPitting}
		case e.RetireReason != 0:
			e.Gap = domain.Gap{Kind: domain.GapRetired, Reason: domain.RetirementReason(e.RetireReason)}
		case slot == leaderSlot:
			e.Gap = domain.Gap{Kind: domain.GapLeader}
		case e.LapsDown > 0:
			e.Gap = domain.Gap{Kind: domain.GapLaps, Laps: e.LapsDown}
		case e.LapsCompleted == leader.LapsCompleted:
			e.Gap = clockGap(leader.LapEndClock, leader.EndClockValid, e)
		case e.LapsCompleted == leader.LapsCompleted-1:
			// The leader has started its next lap; compare against its
			// current-lap start clock instead.
			e.Gap = clockGap(leader.LapStartClock, leader.StartClockValid, e)
		default:
			e.Gap = domain.Gap{Kind: domain.GapLaps, Laps: leader.LapsCompleted - e.LapsCompleted}
		}
		entities[slot] = e
	}
}

// clockGap computes a signed time interval between the entity's lap-end clock
// and a leader reference clock. The subtraction wraps modulo 2^32 and the
// result is reinterpreted as signed, so a car marginally ahead on the road
// shows a small negative interval rather than ~2^32 ms.
func clockGap(leaderClock uint32, leaderValid bool, e domain.EntityState) domain.Gap {
	if !leaderValid || !e.EndClockValid {
		return domain.Gap{Kind: domain.GapNone}
	}
	diff := int64(int32(WrapDelta32(leaderClock, e.LapEndClock)))
	return domain.Gap{Kind: domain.GapTime, TimeMS: diff}
}
