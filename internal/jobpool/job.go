package jobpool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/pageflow/internal/models"
)

// NextRunResolver computes the next run time for a job. Implemented by
// schedule.Resolver; an interface here keeps the pool free of schedule
// internals and lets tests plug in a fixed clock.
type NextRunResolver interface {
	NextRun(job *Job) (ts int64, mode string)
}

// Job is the runtime record for one page's posting pipeline.
//
// Locking: stateMu is a lightweight mutex guarding the scalar scheduling
// state; it must never be held across I/O. uploadMu serializes upload
// execution for this job and may be held for the full length of a network
// transfer. The two are never acquired while the other is held.
//
// The identity and variant fields are written only while the job is not
// dispatched (by the control API), so they take no lock.
type Job struct {
	Kind             models.JobKind
	PageID           string
	PageName         string
	AppName          string
	Folder           string
	IntervalSeconds  int
	PageAccessToken  string
	SortBy           string
	UseSmartSchedule bool
	TemplateID       *int64

	Video *models.VideoSettings
	Story *models.StorySettings
	Reels *models.ReelsSettings

	stateMu         sync.Mutex
	enabled         bool
	isScheduled     bool
	cancelRequested bool
	pendingDispatch bool
	nextRun         int64
	nextIndex       int

	uploadMu sync.Mutex
}

// New builds a job with the construction default of "first run after one
// full interval from now", never less than one second out.
func New(snap *models.JobSnapshot) *Job {
	j := &Job{
		Kind:             snap.Kind(),
		PageID:           snap.PageID,
		PageName:         snap.PageName,
		AppName:          snap.AppName,
		Folder:           snap.Folder,
		IntervalSeconds:  maxInt(0, snap.IntervalSeconds),
		PageAccessToken:  snap.PageAccessToken,
		SortBy:           snap.SortBy,
		UseSmartSchedule: snap.UseSmartSchedule,
		TemplateID:       snap.TemplateID,
		Video:            snap.Video,
		Story:            snap.Story,
		Reels:            snap.Reels,
		enabled:          snap.Enabled,
		isScheduled:      snap.IsScheduled,
		nextRun:          snap.NextRunTimestamp,
		nextIndex:        snap.NextIndex,
	}
	if j.SortBy == "" {
		j.SortBy = models.SortByName
	}
	if j.nextRun == 0 {
		j.nextRun = time.Now().Unix() + int64(maxInt(1, j.IntervalSeconds))
	}
	return j
}

func (j *Job) Enabled() bool {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	return j.enabled
}

func (j *Job) SetEnabled(v bool) {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	j.enabled = v
}

func (j *Job) IsScheduled() bool {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	return j.isScheduled
}

func (j *Job) SetScheduled(v bool) {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	j.isScheduled = v
}

func (j *Job) CancelRequested() bool {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	return j.cancelRequested
}

// RequestCancel flags the job for cooperative cancellation. The running
// upload observes it at the next chunk boundary.
func (j *Job) RequestCancel() {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	j.cancelRequested = true
}

// CheckAndResetCancel atomically tests and clears the cancel flag. It is the
// only sanctioned consumer of a cancellation request: one request is observed
// exactly once even under concurrent polling.
func (j *Job) CheckAndResetCancel() bool {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	if j.cancelRequested {
		j.cancelRequested = false
		return true
	}
	return false
}

func (j *Job) NextIndex() int {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	return j.nextIndex
}

// AdvanceIndex returns the current round-robin position modulo n and steps
// past it. The index always moves, so one bad file cannot wedge the rotation.
func (j *Job) AdvanceIndex(n int) int {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	idx := j.nextIndex % n
	j.nextIndex = idx + 1
	return idx
}

func (j *Job) NextRun() int64 {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	return j.nextRun
}

func (j *Job) SetNextRun(ts int64) {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	j.nextRun = ts
}

// ResetNextRun recomputes and stores the next run time. The resolver always
// yields a usable timestamp (it falls back to the flat interval), so a job is
// never left without a future run once scheduling has started.
func (j *Job) ResetNextRun(r NextRunResolver) {
	ts, mode := r.NextRun(j)
	j.SetNextRun(ts)
	slog.Debug("next run scheduled",
		"page", j.PageName, "kind", string(j.Kind), "mode", mode,
		"at", time.Unix(ts, 0).Format("2006-01-02 15:04"))
}

// BeginDispatch marks the job as handed to the queue. It returns false when a
// dispatch is already pending or running, so the scan tick never enqueues the
// same job twice.
func (j *Job) BeginDispatch() bool {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	if j.pendingDispatch {
		return false
	}
	j.pendingDispatch = true
	return true
}

func (j *Job) EndDispatch() {
	j.stateMu.Lock()
	defer j.stateMu.Unlock()
	j.pendingDispatch = false
}

// TryLockUpload attempts to take the upload mutex without blocking. A false
// return means a previous upload for this job is still in flight.
func (j *Job) TryLockUpload() bool { return j.uploadMu.TryLock() }

func (j *Job) UnlockUpload() { j.uploadMu.Unlock() }

// Snapshot captures the job for persistence. Every base field plus the
// variant payload round-trips.
func (j *Job) Snapshot() *models.JobSnapshot {
	j.stateMu.Lock()
	enabled, scheduled, nextRun := j.enabled, j.isScheduled, j.nextRun
	nextIndex := j.nextIndex
	j.stateMu.Unlock()

	return &models.JobSnapshot{
		PageID:           j.PageID,
		PageName:         j.PageName,
		AppName:          j.AppName,
		Folder:           j.Folder,
		IntervalSeconds:  j.IntervalSeconds,
		PageAccessToken:  j.PageAccessToken,
		NextIndex:        nextIndex,
		SortBy:           j.SortBy,
		Enabled:          enabled,
		IsScheduled:      scheduled,
		NextRunTimestamp: nextRun,
		UseSmartSchedule: j.UseSmartSchedule,
		TemplateID:       j.TemplateID,
		Video:            j.Video,
		Story:            j.Story,
		Reels:            j.Reels,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
