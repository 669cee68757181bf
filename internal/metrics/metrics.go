// Package metrics tracks per-run counters for the crawl and reconciliation
// pipeline. Counters are safe for concurrent use and read once at the end of
// a run for the summary report.
package metrics

import (
	"sync/atomic"
	"time"
)

// RunMetrics accumulates counters over a single crawl or recheck run.
type RunMetrics struct {
	startTime time.Time

	pagesVisited  atomic.Int64
	pagesFailed   atomic.Int64
	linksSeen     atomic.Int64
	linksChecked  atomic.Int64
	linksBroken   atomic.Int64
	linksBlocked  atomic.Int64
	newlyBroken   atomic.Int64
	recordWrites  atomic.Int64
	recordSkips   atomic.Int64
	cacheHits     atomic.Int64
	alertsEmitted atomic.Int64
}

// NewRunMetrics creates a RunMetrics anchored at the current time.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{startTime: time.Now()}
}

// PageVisited records one successfully rendered page.
func (m *RunMetrics) PageVisited() { m.pagesVisited.Add(1) }

// PageFailed records one page that could not be rendered.
func (m *RunMetrics) PageFailed() { m.pagesFailed.Add(1) }

// LinkSeen records one anchor discovered on a page.
func (m *RunMetrics) LinkSeen() { m.linksSeen.Add(1) }

// LinkChecked records one completed reachability classification.
func (m *RunMetrics) LinkChecked() { m.linksChecked.Add(1) }

// LinkBroken records one link classified Broken.
func (m *RunMetrics) LinkBroken() { m.linksBroken.Add(1) }

// LinkBlocked records one link classified Blocked.
func (m *RunMetrics) LinkBlocked() { m.linksBlocked.Add(1) }

// NewlyBroken records one link that transitioned into Broken this run.
func (m *RunMetrics) NewlyBroken() { m.newlyBroken.Add(1) }

// RecordWritten records one create or update against the record store.
func (m *RunMetrics) RecordWritten() { m.recordWrites.Add(1) }

// RecordSkipped records one occurrence left untouched because its verdict
// did not change.
func (m *RunMetrics) RecordSkipped() { m.recordSkips.Add(1) }

// CacheHit records one classification served from the per-run memo.
func (m *RunMetrics) CacheHit() { m.cacheHits.Add(1) }

// AlertEmitted records one digest delivered to the notification sink.
func (m *RunMetrics) AlertEmitted() { m.alertsEmitted.Add(1) }

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	PagesVisited  int64
	PagesFailed   int64
	LinksSeen     int64
	LinksChecked  int64
	LinksBroken   int64
	LinksBlocked  int64
	NewlyBroken   int64
	RecordWrites  int64
	RecordSkips   int64
	CacheHits     int64
	AlertsEmitted int64
	Elapsed       time.Duration
}

// Snapshot returns the current counter values and elapsed run time.
func (m *RunMetrics) Snapshot() Snapshot {
	return Snapshot{
		PagesVisited:  m.pagesVisited.Load(),
		PagesFailed:   m.pagesFailed.Load(),
		LinksSeen:     m.linksSeen.Load(),
		LinksChecked:  m.linksChecked.Load(),
		LinksBroken:   m.linksBroken.Load(),
		LinksBlocked:  m.linksBlocked.Load(),
		NewlyBroken:   m.newlyBroken.Load(),
		RecordWrites:  m.recordWrites.Load(),
		RecordSkips:   m.recordSkips.Load(),
		CacheHits:     m.cacheHits.Load(),
		AlertsEmitted: m.alertsEmitted.Load(),
		Elapsed:       time.Since(m.startTime),
	}
}
