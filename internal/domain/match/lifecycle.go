package match

import "time"

// Policy holds the auto-timeout thresholds for live matches of one feed.
type Policy struct {
	LiveCeiling time.Duration
	QuietWindow time.Duration
}

var (
	AmateurPolicy = Policy{LiveCeiling: 3 * time.Hour, QuietWindow: 30 * time.Minute}
	ProPolicy     = Policy{LiveCeiling: 4 * time.Hour, QuietWindow: 45 * time.Minute}
)

func PolicyFor(provider Provider) Policy {
	if provider.Feed() == FeedAmateur {
		return AmateurPolicy
	}
	return ProPolicy
}

type TransitionKind string

const (
	TransitionNone     TransitionKind = "none"
	TransitionStarted  TransitionKind = "started"
	TransitionTimedOut TransitionKind = "timed_out"
)

type Transition struct {
	Kind  TransitionKind
	From  Phase
	To    Phase
	Match Match
	// TriggerLiveSync asks the caller to kick off a live data sync for the match.
	TriggerLiveSync bool
}

func (t Transition) Changed() bool {
	return t.Kind != TransitionNone
}

// Evaluate applies the lifecycle rule to m at now. It is a pure function of
// its inputs: evaluating the returned match again at the same instant is a no-op.
func Evaluate(m Match, policy Policy, now time.Time) Transition {
	none := Transition{Kind: TransitionNone, From: m.Phase, To: m.Phase, Match: m}

	switch m.Phase {
	case PhaseUpcoming:
		if m.ScheduledAt.IsZero() || now.Before(m.ScheduledAt) {
			return none
		}
		next := m
		next.Phase = PhaseLive
		next.RawStatus = RunningStatus(m.Provider)
		if next.StartedAt == nil {
			next.StartedAt = timePtr(now)
		}
		next.LastUpdateAt = timePtr(now)
		return Transition{
			Kind:            TransitionStarted,
			From:            PhaseUpcoming,
			To:              PhaseLive,
			Match:           next,
			TriggerLiveSync: true,
		}

	case PhaseLive:
		startRef := m.ScheduledAt
		if m.StartedAt != nil {
			startRef = *m.StartedAt
		}
		if startRef.IsZero() {
			return none
		}
		lastRef := startRef
		if m.LastUpdateAt != nil {
			lastRef = *m.LastUpdateAt
		}
		if now.Sub(startRef) <= policy.LiveCeiling || now.Sub(lastRef) <= policy.QuietWindow {
			return none
		}
		next := m
		next.Phase = PhaseFinished
		next.RawStatus = FinishedStatus(m.Provider)
		next.FinishedAt = timePtr(now)
		return Transition{
			Kind:  TransitionTimedOut,
			From:  PhaseLive,
			To:    PhaseFinished,
			Match: next,
		}

	default:
		return none
	}
}
