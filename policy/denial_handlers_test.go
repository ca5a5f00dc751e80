package policy_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/policy"
	"github.com/reglet-dev/reglet-addon-host/telemetry"
)

func TestDenialHandlers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	metrics := telemetry.NewMetrics(nil)
	recorder := &policy.Recorder{}

	checker := capability.NewChecker(capability.WithDenialHandler(policy.Chain(
		policy.LogDenials(logger),
		policy.CountDenials(metrics),
		nil,
		recorder.Handle,
	)))
	checker.Grant("studio.tools", capability.NewPermissionSet(capability.PermKeymap))

	ctx := context.Background()
	require.NoError(t, checker.Check(ctx, "studio.tools", capability.PermKeymap))
	require.ErrorIs(t, checker.Check(ctx, "studio.tools", capability.PermNetwork), capability.ErrPermissionDenied)
	require.ErrorIs(t, checker.Check(ctx, "studio.other", capability.PermNetwork), capability.ErrPermissionDenied)

	denials := recorder.Denials()
	require.Len(t, denials, 2)
	assert.Equal(t, "studio.tools", denials[0].AddonID)
	assert.Equal(t, capability.PermNetwork, denials[1].Permission)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Denials.WithLabelValues("network")))
	assert.Contains(t, buf.String(), "permission denied")
	assert.Contains(t, buf.String(), "addon=studio.other")
}

func TestCountDenials_NilMetrics(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		policy.CountDenials(nil)(context.Background(), "a", capability.PermTimers, "no")
		policy.Nop(context.Background(), "a", capability.PermTimers, "no")
	})
}
