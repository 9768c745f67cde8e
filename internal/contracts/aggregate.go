package contracts

import (
	"sort"
	"time"
)

// EntryStatus is the per-source coverage state of an aggregate record
type EntryStatus string

const (
	EntryAvailable EntryStatus = "available"
	EntrySkipped   EntryStatus = "skipped" // never tried (no credentials)
	EntryFailed    EntryStatus = "failed"  // tried and it broke
)

// SourceEntry is one source's slot in an AggregateRecord
type SourceEntry struct {
	Source     string      `json:"source"`
	Provider   string      `json:"provider"`
	Status     EntryStatus `json:"status"`
	Kind       FailureKind `json:"kind,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Data       any         `json:"data,omitempty"`
}

// EntryFromOutcome maps an adapter outcome onto a record entry
func EntryFromOutcome(source, provider string, o Outcome) SourceEntry {
	e := SourceEntry{
		Source:     source,
		Provider:   provider,
		Kind:       o.Kind,
		StatusCode: o.StatusCode,
	}

	switch {
	case o.OK():
		e.Status = EntryAvailable
		e.Data = o.Data
	case o.Kind == KindMissingCredentials && !o.Attempted:
		e.Status = EntrySkipped
		e.Reason = o.Message
	default:
		e.Status = EntryFailed
		e.Reason = o.Message
	}

	return e
}

// AggregateRecord is one region's multi-source profile for a single run
// ⭐ SSOT: 요청된 모든 소스는 Sources에 정확히 한 번 등장
type AggregateRecord struct {
	RunID     string                 `json:"run_id"`
	Region    RegionProfile          `json:"region"`
	Timestamp time.Time              `json:"timestamp"`
	Range     DateRange              `json:"range"`
	Sources   map[string]SourceEntry `json:"sources"`
}

// Available returns sorted names of sources that produced data
func (r *AggregateRecord) Available() []string {
	return r.byStatus(EntryAvailable)
}

// Skipped returns sorted names of sources never attempted
func (r *AggregateRecord) Skipped() []string {
	return r.byStatus(EntrySkipped)
}

// Failed returns sorted names of sources that were attempted and failed
func (r *AggregateRecord) Failed() []string {
	return r.byStatus(EntryFailed)
}

// Coverage returns the available fraction, 0 for an empty record
func (r *AggregateRecord) Coverage() float64 {
	if len(r.Sources) == 0 {
		return 0.0
	}
	return float64(len(r.Available())) / float64(len(r.Sources))
}

func (r *AggregateRecord) byStatus(status EntryStatus) []string {
	names := make([]string, 0, len(r.Sources))
	for name, e := range r.Sources {
		if e.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
