package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	t.Setenv("KINSTALL_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, parseDuration("KINSTALL_TEST_DURATION", time.Minute))

	t.Setenv("KINSTALL_TEST_DURATION", "-5s")
	assert.Equal(t, time.Minute, parseDuration("KINSTALL_TEST_DURATION", time.Minute))

	t.Setenv("KINSTALL_TEST_DURATION", "")
	assert.Equal(t, time.Minute, parseDuration("KINSTALL_TEST_DURATION", time.Minute))
}

func TestTimeouts_ForWait(t *testing.T) {
	t.Parallel()

	var timeouts Timeouts
	timeouts.applyDefaults()
	timeouts.Namespace.Duration = 10 * time.Second

	assert.Equal(t, 10*time.Second, timeouts.ForWait(WaitNamespace))
	assert.Equal(t, DefaultCRDTimeout, timeouts.ForWait(WaitCRD))
	assert.Equal(t, DefaultResourceTimeout, timeouts.ForWait(WaitResource))
	assert.Equal(t, DefaultWorkloadTimeout, timeouts.ForWait(WaitDeployment))
	assert.Equal(t, DefaultWorkloadTimeout, timeouts.ForWait(WaitPods))

	assert.Equal(t, DefaultWorkloadTimeout, Timeouts{}.ForWait(WaitStatefulSet))
}

func TestDuration_Or(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, Duration{}.Or(time.Second))
	assert.Equal(t, time.Minute, Duration{Duration: time.Minute}.Or(time.Second))
}
