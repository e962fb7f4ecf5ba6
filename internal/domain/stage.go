package domain

// Stage is the workflow phase of an in-progress trip.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageDelivering Stage = "delivering"
	StageReturning  Stage = "returning"
)

// StageOf derives the workflow stage from a leg history. It is never stored.
func StageOf(legs []Leg) Stage {
	var loaded, unloaded bool
	for _, leg := range legs {
		if leg.Status != LegStatusCompleted {
			continue
		}
		switch leg.Kind {
		case LegWaitLoading:
			loaded = true
		case LegWaitUnloading:
			unloaded = true
		}
	}

	switch {
	case loaded && unloaded:
		return StageReturning
	case loaded:
		return StageDelivering
	default:
		return StageInitial
	}
}

// AllowedWait returns the waiting kind a pause may request in this stage,
// and false when no pause is allowed.
func (s Stage) AllowedWait() (WaitingKind, bool) {
	switch s {
	case StageInitial:
		return WaitingLoading, true
	case StageDelivering:
		return WaitingUnloading, true
	}
	return "", false
}

// ResumeLeg returns the leg variant opened when a waiting leg of kind k ends.
func ResumeLeg(k LegKind) LegKind {
	if k == LegWaitUnloading {
		return LegRepositioning
	}
	return LegNormal
}
