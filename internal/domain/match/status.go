package match

import (
	"strings"
	"time"
)

// FaceitStatus is the raw status vocabulary of the FACEIT amateur feed.
type FaceitStatus string

const (
	FaceitUpcoming    FaceitStatus = "upcoming"
	FaceitReady       FaceitStatus = "READY"
	FaceitConfiguring FaceitStatus = "CONFIGURING"
	FaceitOngoing     FaceitStatus = "ONGOING"
	FaceitLive        FaceitStatus = "LIVE"
	FaceitRunning     FaceitStatus = "running"
	FaceitFinished    FaceitStatus = "FINISHED"
	FaceitCompleted   FaceitStatus = "completed"
	FaceitCancelled   FaceitStatus = "cancelled"
	FaceitAborted     FaceitStatus = "aborted"
)

var faceitStatuses = map[string]FaceitStatus{
	string(FaceitUpcoming):    FaceitUpcoming,
	string(FaceitReady):       FaceitReady,
	string(FaceitConfiguring): FaceitConfiguring,
	string(FaceitOngoing):     FaceitOngoing,
	string(FaceitLive):        FaceitLive,
	string(FaceitRunning):     FaceitRunning,
	string(FaceitFinished):    FaceitFinished,
	string(FaceitCompleted):   FaceitCompleted,
	string(FaceitCancelled):   FaceitCancelled,
	string(FaceitAborted):     FaceitAborted,
}

func ParseFaceitStatus(raw string) (FaceitStatus, bool) {
	s, ok := faceitStatuses[strings.TrimSpace(raw)]
	return s, ok
}

func (s FaceitStatus) Phase() (Phase, bool) {
	switch s {
	case FaceitUpcoming, FaceitReady, FaceitConfiguring:
		return PhaseUpcoming, true
	case FaceitOngoing, FaceitLive, FaceitRunning:
		return PhaseLive, true
	case FaceitFinished, FaceitCompleted, FaceitCancelled, FaceitAborted:
		return PhaseFinished, true
	default:
		return "", false
	}
}

// ProStatus is the raw status vocabulary shared by the pro aggregator feeds.
type ProStatus string

const (
	ProNotStarted ProStatus = "not_started"
	ProScheduled  ProStatus = "scheduled"
	ProReady      ProStatus = "ready"
	ProRunning    ProStatus = "running"
	ProLive       ProStatus = "live"
	ProOngoing    ProStatus = "ongoing"
	ProFinished   ProStatus = "finished"
	ProCompleted  ProStatus = "completed"
	ProCancelled  ProStatus = "cancelled"
	ProCanceled   ProStatus = "canceled"
	ProPostponed  ProStatus = "postponed"
	ProForfeit    ProStatus = "forfeit"
)

var proStatuses = map[string]ProStatus{
	string(ProNotStarted): ProNotStarted,
	string(ProScheduled):  ProScheduled,
	string(ProReady):      ProReady,
	string(ProRunning):    ProRunning,
	string(ProLive):       ProLive,
	string(ProOngoing):    ProOngoing,
	string(ProFinished):   ProFinished,
	string(ProCompleted):  ProCompleted,
	string(ProCancelled):  ProCancelled,
	string(ProCanceled):   ProCanceled,
	string(ProPostponed):  ProPostponed,
	string(ProForfeit):    ProForfeit,
}

func ParseProStatus(raw string) (ProStatus, bool) {
	s, ok := proStatuses[strings.TrimSpace(raw)]
	return s, ok
}

func (s ProStatus) Phase() (Phase, bool) {
	switch s {
	case ProNotStarted, ProScheduled, ProReady:
		return PhaseUpcoming, true
	case ProRunning, ProLive, ProOngoing:
		return PhaseLive, true
	case ProFinished, ProCompleted, ProCancelled, ProCanceled, ProPostponed, ProForfeit:
		return PhaseFinished, true
	default:
		return "", false
	}
}

// Classification is the canonical phase for a raw provider status.
// Mapped is false when the raw status is unknown and the phase came from
// the scheduled start time instead; callers are expected to log those.
type Classification struct {
	Phase  Phase
	Mapped bool
}

// Classify maps a provider status to a phase. Unknown statuses resolve to
// upcoming while the scheduled start is in the future and live afterwards.
func Classify(provider Provider, rawStatus string, scheduledAt, now time.Time) Classification {
	var (
		phase Phase
		ok    bool
	)
	switch provider.Feed() {
	case FeedAmateur:
		if s, known := ParseFaceitStatus(rawStatus); known {
			phase, ok = s.Phase()
		}
	case FeedPro:
		if s, known := ParseProStatus(rawStatus); known {
			phase, ok = s.Phase()
		}
	}
	if ok {
		return Classification{Phase: phase, Mapped: true}
	}

	if scheduledAt.After(now) {
		return Classification{Phase: PhaseUpcoming}
	}
	return Classification{Phase: PhaseLive}
}

// RunningStatus is the raw token written when a match is auto-started.
func RunningStatus(provider Provider) string {
	if provider.Feed() == FeedAmateur {
		return string(FaceitOngoing)
	}
	return string(ProRunning)
}

// FinishedStatus is the raw token written when a live match times out.
func FinishedStatus(provider Provider) string {
	if provider.Feed() == FeedAmateur {
		return string(FaceitFinished)
	}
	return string(ProFinished)
}
