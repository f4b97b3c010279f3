package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnsupportedJob(t *testing.T) {
	cli, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	_, err = cli.Trigger(context.Background(), "stock:unknown")
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerWarmupValidatesScope(t *testing.T) {
	cli, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	_, err = cli.TriggerWarmup(context.Background(), 0, nil)
	require.ErrorContains(t, err, "warmup requires")
}

func TestNilCLIIsSafe(t *testing.T) {
	var cli *JobsCLI

	_, err := cli.Trigger(context.Background(), "stock:refresh")
	require.Error(t, err)

	_, err = cli.InspectQueue(context.Background())
	require.Error(t, err)
}
