package handlers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/kinstall/internal/orchestration"
)

func TestListSteps(t *testing.T) {
	t.Parallel()

	reg := orchestration.NewRegistry()
	require.NoError(t, reg.Register("karpenter", true, orchestration.FuncAction{Description: "Install karpenter"}))
	require.NoError(t, reg.Register("monitoring", false, orchestration.FuncAction{Description: "Install monitoring"}))

	out := &bytes.Buffer{}
	require.NoError(t, listSteps(out, reg, false))

	lines := out.String()
	assert.Contains(t, lines, "CRITICAL")
	assert.Regexp(t, `1\s*│\s*karpenter\s*│\s*yes\s*│\s*Install karpenter`, lines)
	assert.Regexp(t, `2\s*│\s*monitoring\s*│\s*no\s*│\s*Install monitoring`, lines)
}
