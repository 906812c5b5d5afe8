package storage

import (
	"context"
	"time"
)

// Outcome classifies what a single collection query produced.
type Outcome string

const (
	OutcomeTopic     Outcome = "topic"      // a topic was generated
	OutcomeNoResults Outcome = "no_results" // search returned nothing
	OutcomeNoTopic   Outcome = "no_topic"   // the LLM output was unusable
	OutcomeError     Outcome = "error"      // search or generation failed
)

// QueryRecord is the audit trail of one search query during a collection run.
type QueryRecord struct {
	ID        string
	RunID     string
	Region    string
	Category  string
	Query     string
	Outcome   Outcome
	Slug      string // set when Outcome is OutcomeTopic
	Source    string // hostname of the search result used
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// Filter allows querying for specific QueryRecords.
type Filter struct {
	RunID   string
	Region  string
	Outcome Outcome
	Since   *time.Time
	Limit   int
	Offset  int
}

// Match reports whether r passes every field set on f. Limit and Offset are
// applied by the caller.
func (f Filter) Match(r *QueryRecord) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page orders records newest first and applies Offset and Limit. It is used
// by the file backends, which filter in memory.
func (f Filter) Page(records []*QueryRecord) []*QueryRecord {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*QueryRecord{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for storing and querying run history.
type Backend interface {
	Save(ctx context.Context, record *QueryRecord) error
	Query(ctx context.Context, filter Filter) ([]*QueryRecord, error)
	Close() error
}

// Discard is a Backend that records nothing.
type Discard struct{}

func (Discard) Save(context.Context, *QueryRecord) error { return nil }

func (Discard) Query(context.Context, Filter) ([]*QueryRecord, error) {
	return []*QueryRecord{}, nil
}

func (Discard) Close() error { return nil }
