package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepStatus_CanTransition(t *testing.T) {
	t.Parallel()

	all := []StepStatus{StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusSkipped}
	allowed := map[[2]StepStatus]bool{
		{StatusPending, StatusRunning}: true,
		{StatusPending, StatusSkipped}: true,
		{StatusRunning, StatusSuccess}: true,
		{StatusRunning, StatusFailed}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]StepStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestStepStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusSkipped.Terminal())
}
