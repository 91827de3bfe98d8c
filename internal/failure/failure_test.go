package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", base, KindUnknown},
		{"validation", Validation("parse", base), KindValidation},
		{"connectivity", Connectivity("ping", base), KindConnectivity},
		{"timeout", ReadinessTimeout("wait", base), KindReadinessTimeout},
		{"terminal", Terminal("wait", base), KindTerminalFailure},
		{"apply", Apply("create", base), KindApply},
		{"canceled", Canceled("wait", context.Canceled), KindCanceled},
		{"wrapped", fmt.Errorf("step argocd: %w", Apply("create", base)), KindApply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	t.Parallel()

	err := Canceled("wait namespace kubeblocks", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "wait namespace kubeblocks: context canceled", err.Error())

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindCanceled, fe.Kind)
}

func TestError_MessageVariants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ValidationError", (&Error{Kind: KindValidation}).Error())
	assert.Equal(t, "only op", (&Error{Kind: KindApply, Op: "only op"}).Error())
	assert.Equal(t, "unknown step \"x\"", Validationf("unknown step %q", "x").Error())
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	assert.True(t, IsValidation(Validation("", base)))
	assert.True(t, IsConnectivity(Connectivity("", base)))
	assert.True(t, IsReadinessTimeout(ReadinessTimeout("", base)))
	assert.True(t, IsTerminal(Terminal("", base)))
	assert.True(t, IsApply(Apply("", base)))
	assert.True(t, IsCanceled(Canceled("", base)))
	assert.False(t, IsApply(base))
}
