package synclog

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Job names the sync audit stream an entry belongs to. Each job has its own table.
type Job string

const (
	JobFaceit      Job = "faceit"
	JobPandaScore  Job = "pandascore"
	JobSportDevs   Job = "sportdevs"
	JobMatchStatus Job = "match_status"
)

func Jobs() []Job {
	return []Job{JobFaceit, JobPandaScore, JobSportDevs, JobMatchStatus}
}

func ParseJob(raw string) (Job, error) {
	j := Job(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Jobs() {
		if j == known {
			return j, nil
		}
	}
	return "", fmt.Errorf("unknown sync job %q", raw)
}

// Entry records one sync run: what was fetched, written and what failed.
type Entry struct {
	ID           string
	Job          Job
	Operation    string
	Status       Status
	StartedAt    time.Time
	Duration     time.Duration
	Fetched      int
	Upserted     int
	Transitioned int
	Failed       int
	ErrorMessage string
	ErrorStack   string
}

// Summary aggregates entries of one job over a reporting window.
type Summary struct {
	Job          Job
	Runs         int
	Errors       int
	Fetched      int
	Upserted     int
	Transitioned int
	Failed       int
	LastError    string
}

func Summarize(entries []Entry) []Summary {
	byJob := make(map[Job]*Summary)
	order := make([]Job, 0)
	for _, e := range entries {
		s, ok := byJob[e.Job]
		if !ok {
			s = &Summary{Job: e.Job}
			byJob[e.Job] = s
			order = append(order, e.Job)
		}
		s.Runs++
		s.Fetched += e.Fetched
		s.Upserted += e.Upserted
		s.Transitioned += e.Transitioned
		s.Failed += e.Failed
		if e.Status == StatusError {
			s.Errors++
			s.LastError = e.ErrorMessage
		}
	}

	out := make([]Summary, 0, len(order))
	for _, job := range order {
		out = append(out, *byJob[job])
	}
	return out
}
