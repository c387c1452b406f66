package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/model"
	"github.com/yumyai/bgcselect/pkg/pipeline"
	"go.uber.org/zap"
)

var ErrJobRunning = errors.New("a selection job is already running")

// JobStatus represents the lifecycle of a selection run started over HTTP.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job keeps track of a batch while it runs. The ID is the run id.
type Job struct {
	ID        string           `json:"run_id"`
	InputDir  string           `json:"input_dir"`
	Status    JobStatus        `json:"status"`
	Error     string           `json:"error,omitempty"`
	Report    *pipeline.Report `json:"report,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	batch *pipeline.Batch
	done  chan struct{}
}

// JobView is a point-in-time copy of a job, with live counters.
type JobView struct {
	Job
	Stats model.SelectionStats `json:"stats"`
}

// JobManager runs at most one selection at a time and remembers past jobs
// of this process. Jobs run on the manager context, not the request's.
type JobManager struct {
	ctx    context.Context
	mu     sync.RWMutex
	jobs   map[string]*Job
	active string
	wg     sync.WaitGroup
}

func NewJobManager(ctx context.Context) *JobManager {
	return &JobManager{
		ctx:  ctx,
		jobs: make(map[string]*Job),
	}
}

// Start begins b in the background and returns the new job.
func (m *JobManager) Start(ctx context.Context, b *pipeline.Batch) (JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return JobView{}, ErrJobRunning
	}

	runID, err := b.Begin(ctx)
	if err != nil {
		return JobView{}, err
	}

	now := time.Now()
	job := &Job{
		ID:        runID,
		InputDir:  b.Config.InputDir,
		Status:    JobRunning,
		CreatedAt: now,
		UpdatedAt: now,
		batch:     b,
		done:      make(chan struct{}),
	}
	m.jobs[runID] = job
	m.active = runID

	m.wg.Add(1)
	go m.run(job)

	return m.view(job), nil
}

func (m *JobManager) run(job *Job) {
	defer m.wg.Done()
	defer close(job.done)

	rep, err := job.batch.Execute(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	job.Report = rep
	job.UpdatedAt = time.Now()
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		logger.Error("Selection job failed", zap.String("run_id", job.ID), zap.Error(err))
	} else {
		job.Status = JobCompleted
	}
	m.active = ""
}

// GetJob fetches a job by ID.
func (m *JobManager) GetJob(jobID string) (JobView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return JobView{}, false
	}
	return m.view(job), true
}

// Done is closed once the job has finished; nil for unknown jobs.
func (m *JobManager) Done(jobID string) <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, ok := m.jobs[jobID]; ok {
		return job.done
	}
	return nil
}

// Wait blocks until every started job has returned.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// view copies job; callers hold m.mu.
func (m *JobManager) view(job *Job) JobView {
	v := JobView{Job: *job, Stats: job.batch.Progress()}
	v.batch = nil
	v.done = nil
	return v
}
