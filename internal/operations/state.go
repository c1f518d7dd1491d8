package operations

import (
	"sync"
	"time"
)

// FileStatus represents the overall status of one file in a batch
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusRunning   FileStatus = "running"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

// FileState tracks the stages of one file through the pipeline
type FileState struct {
	mu sync.RWMutex

	Source    string     `json:"source"`
	TraceID   string     `json:"trace_id"`
	Status    FileStatus `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Stages in execution order
	Stages []*StepState `json:"stages"`

	Error error `json:"-"`
}

// NewFileState creates a state with every stage pending
func NewFileState(source, traceID string) *FileState {
	stages := make([]*StepState, len(StageOrder))
	for i, id := range StageOrder {
		stages[i] = NewStepState(id)
	}
	return &FileState{
		Source:  source,
		TraceID: traceID,
		Status:  FileStatusPending,
		Stages:  stages,
	}
}

// Start marks the file as running
func (f *FileState) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = FileStatusRunning
	f.StartTime = time.Now()
}

// Complete marks the file as completed
func (f *FileState) Complete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.EndTime = &now
	f.Status = FileStatusCompleted
}

// Fail marks the file as failed
func (f *FileState) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.EndTime = &now
	f.Status = FileStatusFailed
	f.Error = err
}

// GetStatus returns the current status
func (f *FileState) GetStatus() FileStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Status
}

// Stage returns the state of a specific stage
func (f *FileState) Stage(id string) *StepState {
	for _, s := range f.Stages {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// StagesWithStatus returns the IDs of the stages in a status, in execution order
func (f *FileState) StagesWithStatus(status StepStatus) []string {
	var ids []string
	for _, s := range f.Stages {
		if s.GetStatus() == status {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Duration returns the duration of the file's processing
func (f *FileState) Duration() time.Duration {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.StartTime.IsZero() {
		return 0
	}
	if f.EndTime != nil {
		return f.EndTime.Sub(f.StartTime)
	}
	return time.Since(f.StartTime)
}
