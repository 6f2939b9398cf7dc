package jobpool

import (
	"sync"

	"github.com/maheshrc27/pageflow/internal/models"
)

// Pool is the arena of job records, indexed by (kind, page id). Records carry
// their own locks, so cross-page concurrency never funnels through a single
// mutex; the pool lock only guards the map itself.
type Pool struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewPool() *Pool {
	return &Pool{jobs: make(map[string]*Job)}
}

func key(kind models.JobKind, pageID string) string {
	return string(kind) + ":" + pageID
}

func (p *Pool) Add(j *Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs[key(j.Kind, j.PageID)] = j
}

func (p *Pool) Get(kind models.JobKind, pageID string) *Job {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jobs[key(kind, pageID)]
}

func (p *Pool) Remove(kind models.JobKind, pageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, key(kind, pageID))
}

func (p *Pool) List() []*Job {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Job, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j)
	}
	return out
}

// Due returns the enabled, scheduled jobs whose next run time has passed and
// that are not already pending dispatch. Each returned job has been marked
// pending; the worker must call EndDispatch when it is done with it.
func (p *Pool) Due(now int64) []*Job {
	var due []*Job
	for _, j := range p.List() {
		if !j.Enabled() || !j.IsScheduled() {
			continue
		}
		if now < j.NextRun() {
			continue
		}
		if j.BeginDispatch() {
			due = append(due, j)
		}
	}
	return due
}

// Snapshots captures every job for persistence.
func (p *Pool) Snapshots() []*models.JobSnapshot {
	jobs := p.List()
	out := make([]*models.JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}
