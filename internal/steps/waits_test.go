package steps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kinstall/internal/config"
)

func TestCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wait    config.WaitConfig
		wantErr string
	}{
		{name: "namespace", wait: config.WaitConfig{Kind: config.WaitNamespace, Name: "a"}},
		{name: "deployment", wait: config.WaitConfig{Kind: config.WaitDeployment, Name: "a"}},
		{name: "statefulset", wait: config.WaitConfig{Kind: config.WaitStatefulSet, Name: "a"}},
		{name: "daemonset", wait: config.WaitConfig{Kind: config.WaitDaemonSet, Name: "a"}},
		{name: "pods", wait: config.WaitConfig{Kind: config.WaitPods, Selector: "app=a"}},
		{name: "crd", wait: config.WaitConfig{Kind: config.WaitCRD, Name: "things.example.com"}},
		{name: "resource", wait: config.WaitConfig{Kind: config.WaitResource, Name: "a", APIVersion: "example.com/v1", ResourceKind: "Thing"}},
		{name: "empty selector", wait: config.WaitConfig{Kind: config.WaitPods}, wantErr: "matches every pod"},
		{name: "resource without kind", wait: config.WaitConfig{Kind: config.WaitResource, APIVersion: "v1"}, wantErr: "resourceKind"},
		{name: "unknown kind", wait: config.WaitConfig{Kind: "job"}, wantErr: "unknown wait kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cond, err := condition(nil, tt.wait)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cond)
		})
	}
}

func TestBudget(t *testing.T) {
	t.Parallel()

	timeouts := config.Timeouts{
		Workload:     config.Duration{Duration: 3 * time.Minute},
		CRD:          config.Duration{Duration: time.Minute},
		PollInterval: config.Duration{Duration: 2 * time.Second},
	}

	timeout, interval := budget(config.WaitConfig{Kind: config.WaitDeployment}, timeouts)
	assert.Equal(t, 3*time.Minute, timeout)
	assert.Equal(t, 2*time.Second, interval)

	timeout, interval = budget(config.WaitConfig{
		Kind:     config.WaitCRD,
		Timeout:  config.Duration{Duration: 10 * time.Second},
		Interval: config.Duration{Duration: time.Second},
	}, timeouts)
	assert.Equal(t, 10*time.Second, timeout)
	assert.Equal(t, time.Second, interval)

	_, interval = budget(config.WaitConfig{Kind: config.WaitCRD}, config.Timeouts{})
	assert.Equal(t, config.DefaultPollInterval, interval)
}
