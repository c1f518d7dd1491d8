package operations_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mptcli/internal/operations"
)

func TestNewStepState(t *testing.T) {
	state := operations.NewStepState(operations.StageCrop)

	assert.Equal(t, operations.StageCrop, state.ID)
	assert.Equal(t, operations.StepStatusPending, state.GetStatus())
	assert.Nil(t, state.StartTime)
	assert.Nil(t, state.EndTime)
	assert.NoError(t, state.Error)
	assert.Zero(t, state.Duration())
}

func TestStepStateTransitions(t *testing.T) {
	tests := []struct {
		name       string
		transition func(*operations.StepState)
		wantStatus operations.StepStatus
		check      func(t *testing.T, s *operations.StepState)
	}{
		{
			name:       "Start",
			transition: func(s *operations.StepState) { s.Start() },
			wantStatus: operations.StepStatusActive,
			check: func(t *testing.T, s *operations.StepState) {
				assert.NotNil(t, s.StartTime)
				assert.Nil(t, s.EndTime)
			},
		},
		{
			name: "Complete",
			transition: func(s *operations.StepState) {
				s.Start()
				s.Complete()
			},
			wantStatus: operations.StepStatusCompleted,
			check: func(t *testing.T, s *operations.StepState) {
				assert.NotNil(t, s.EndTime)
			},
		},
		{
			name:       "Fail",
			transition: func(s *operations.StepState) { s.Fail(errors.New("boom")) },
			wantStatus: operations.StepStatusFailed,
			check: func(t *testing.T, s *operations.StepState) {
				assert.EqualError(t, s.Error, "boom")
				assert.NotNil(t, s.EndTime)
			},
		},
		{
			name:       "Skip",
			transition: func(s *operations.StepState) { s.Skip("no cycle_number column") },
			wantStatus: operations.StepStatusSkipped,
			check: func(t *testing.T, s *operations.StepState) {
				assert.Equal(t, "no cycle_number column", s.Message)
				assert.Zero(t, s.Duration(), "a skipped stage never started")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := operations.NewStepState("test")
			tt.transition(state)
			assert.Equal(t, tt.wantStatus, state.GetStatus())
			tt.check(t, state)
		})
	}
}

func TestStepStateDuration(t *testing.T) {
	state := operations.NewStepState("test")
	state.Start()
	time.Sleep(5 * time.Millisecond)
	state.Complete()

	d := state.Duration()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, d, state.Duration(), "a finished stage has a fixed duration")
}

func TestFileState(t *testing.T) {
	state := operations.NewFileState("a.mpt", "trace-1")

	require.Len(t, state.Stages, len(operations.StageOrder))
	for i, id := range operations.StageOrder {
		assert.Equal(t, id, state.Stages[i].ID)
	}
	assert.Equal(t, operations.FileStatusPending, state.GetStatus())
	assert.Nil(t, state.Stage("unknown"))

	state.Start()
	assert.Equal(t, operations.FileStatusRunning, state.GetStatus())

	state.Stage(operations.StageParse).Complete()
	state.Stage(operations.StageColumns).Skip("none")
	state.Stage(operations.StageTimeZero).Skip("none")
	assert.Equal(t, []string{operations.StageColumns, operations.StageTimeZero},
		state.StagesWithStatus(operations.StepStatusSkipped))

	err := errors.New("crop failed")
	state.Fail(err)
	assert.Equal(t, operations.FileStatusFailed, state.GetStatus())
	assert.Equal(t, err, state.Error)
	assert.NotNil(t, state.EndTime)
}
