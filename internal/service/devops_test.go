package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/scm"
)

func TestAggregateCheckRuns(t *testing.T) {
	tests := []struct {
		name string
		runs []scm.CheckRun
		want domain.PipelineStatus
	}{
		{
			name: "all successful",
			runs: []scm.CheckRun{
				{Name: "lint", Status: "completed", Conclusion: "success"},
				{Name: "build", Status: "completed", Conclusion: "success"},
			},
			want: domain.PipelineStatusSuccess,
		},
		{
			name: "any failure wins",
			runs: []scm.CheckRun{
				{Name: "lint", Status: "completed", Conclusion: "success"},
				{Name: "build", Status: "completed", Conclusion: "failure"},
				{Name: "test", Status: "in_progress"},
			},
			want: domain.PipelineStatusFailed,
		},
		{
			name: "cancelled beats running",
			runs: []scm.CheckRun{
				{Name: "lint", Status: "completed", Conclusion: "cancelled"},
				{Name: "build", Status: "in_progress"},
			},
			want: domain.PipelineStatusCancelled,
		},
		{
			name: "still running",
			runs: []scm.CheckRun{
				{Name: "lint", Status: "completed", Conclusion: "success"},
				{Name: "build", Status: "in_progress"},
			},
			want: domain.PipelineStatusRunning,
		},
		{
			name: "queued only",
			runs: []scm.CheckRun{
				{Name: "lint", Status: "queued"},
			},
			want: domain.PipelineStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregateCheckRuns(tt.runs))
		})
	}
}
