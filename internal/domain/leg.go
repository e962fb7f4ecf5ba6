package domain

import (
	"fmt"
	"time"
)

// LegType is the persisted type column of a leg.
type LegType string

const (
	LegTypeNormal        LegType = "NORMAL"
	LegTypeWaiting       LegType = "WAITING"
	LegTypeRepositioning LegType = "REPOSITIONING"
)

// WaitingKind tells what a parked trailer is waiting for.
type WaitingKind string

const (
	WaitingLoading   WaitingKind = "LOADING"
	WaitingUnloading WaitingKind = "UNLOADING"
)

// Valid reports whether k is a known waiting kind.
func (k WaitingKind) Valid() bool {
	return k == WaitingLoading || k == WaitingUnloading
}

// LegKind is the closed set of leg variants. Type and waiting kind are
// derived from it, so a NORMAL leg can never carry a waiting kind.
type LegKind uint8

const (
	LegNormal LegKind = iota + 1
	LegWaitLoading
	LegWaitUnloading
	LegRepositioning
)

// WaitingLeg returns the waiting variant for k.
func WaitingLeg(k WaitingKind) (LegKind, error) {
	switch k {
	case WaitingLoading:
		return LegWaitLoading, nil
	case WaitingUnloading:
		return LegWaitUnloading, nil
	}
	return 0, fmt.Errorf("unknown waiting kind %q", k)
}

// ParseLegKind rebuilds a LegKind from its persisted columns.
func ParseLegKind(t LegType, k WaitingKind) (LegKind, error) {
	switch t {
	case LegTypeNormal:
		if k == "" {
			return LegNormal, nil
		}
	case LegTypeRepositioning:
		if k == "" {
			return LegRepositioning, nil
		}
	case LegTypeWaiting:
		return WaitingLeg(k)
	}
	return 0, fmt.Errorf("invalid leg type/kind %q/%q", t, k)
}

// Type returns the persisted leg type.
func (k LegKind) Type() LegType {
	switch k {
	case LegWaitLoading, LegWaitUnloading:
		return LegTypeWaiting
	case LegRepositioning:
		return LegTypeRepositioning
	default:
		return LegTypeNormal
	}
}

// WaitingKind returns the waiting kind, and false for non-waiting legs.
func (k LegKind) WaitingKind() (WaitingKind, bool) {
	switch k {
	case LegWaitLoading:
		return WaitingLoading, true
	case LegWaitUnloading:
		return WaitingUnloading, true
	}
	return "", false
}

// IsWaiting reports whether the leg is a waiting leg.
func (k LegKind) IsWaiting() bool {
	_, ok := k.WaitingKind()
	return ok
}

func (k LegKind) String() string {
	if wk, ok := k.WaitingKind(); ok {
		return string(k.Type()) + "/" + string(wk)
	}
	return string(k.Type())
}

// LegStatus represents the status of a leg.
type LegStatus string

const (
	LegStatusActive    LegStatus = "ACTIVE"
	LegStatusPaused    LegStatus = "PAUSED"
	LegStatusCompleted LegStatus = "COMPLETED"
)

// Leg is a contiguous segment of a trip's execution.
type Leg struct {
	ID           string
	TripID       string
	Seq          int
	Kind         LegKind
	Status       LegStatus
	StartMileage float64
	EndMileage   *float64
	Location     string
	StartedAt    time.Time
	EndedAt      time.Time
}

// Close marks the leg completed at the given mileage.
func (l *Leg) Close(mileage float64, at time.Time) {
	m := mileage
	l.EndMileage = &m
	l.Status = LegStatusCompleted
	l.EndedAt = at
}

// Clone returns a deep copy of the leg.
func (l Leg) Clone() Leg {
	if l.EndMileage != nil {
		v := *l.EndMileage
		l.EndMileage = &v
	}
	return l
}
