// Package search queries the Brave web search API for recent news.
package search

import (
	"context"
	"sync"
)

// Result is one web search hit.
type Result struct {
	Title         string
	URL           string
	Description   string
	PublishedDate string // provider-relative age, e.g. "2 days ago"; may be empty
}

// Provider returns up to count results for query in the given search language.
type Provider interface {
	Search(ctx context.Context, query string, count int, language string) ([]Result, error)
}

const (
	DefaultMonthlyLimit  = 2000
	DefaultWarnThreshold = 0.8
)

// Quota counts successful search calls against a monthly limit. It is safe
// for concurrent use. The count lives for the process only.
type Quota struct {
	mu     sync.Mutex
	used   int
	limit  int
	warnAt float64
}

// NewQuota creates a counter. Non-positive arguments select the defaults.
func NewQuota(limit int, warnThreshold float64) *Quota {
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	if warnThreshold <= 0 || warnThreshold > 1 {
		warnThreshold = DefaultWarnThreshold
	}
	return &Quota{limit: limit, warnAt: warnThreshold}
}

func (q *Quota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

func (q *Quota) Limit() int {
	return q.limit
}

func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used >= q.limit {
		return 0
	}
	return q.limit - q.used
}

// Percent is the share of the limit used so far, 0 to 100.
func (q *Quota) Percent() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(q.used) / float64(q.limit) * 100
}

// Reset sets the usage count back to zero.
func (q *Quota) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used = 0
}

func (q *Quota) exceeded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used >= q.limit
}

// record counts one successful call and reports whether usage is at or above
// the warning threshold.
func (q *Quota) record() (used int, warn bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.used++
	return q.used, float64(q.used)/float64(q.limit) >= q.warnAt
}
