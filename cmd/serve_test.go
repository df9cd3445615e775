package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/chatpulse/config"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
)

// createServeTestDeps creates test dependencies for the serve command.
func createServeTestDeps(cfg *config.CLIConfig, pub *fakePublisher) *ServeCommandDeps {
	return &ServeCommandDeps{
		LoadConfig: func() (*config.CLIConfig, error) {
			return cfg, nil
		},
		NewPublisher: func(context.Context, events.Config, logging.Logger) (events.Publisher, error) {
			return pub, nil
		},
		NewRegistry: prometheus.NewRegistry,
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand(createServeTestDeps(mockCLIConfig(), &fakePublisher{}))

	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("listen"))
	assert.NotNil(t, cmd.Flags().Lookup("log-level"))
}

func TestNewServeCommand_WithNilDeps(t *testing.T) {
	cmd := NewServeCommand(nil)
	assert.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Use)
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	cmd := NewServeCommand(createServeTestDeps(mockCLIConfig(), pub))
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.True(t, pub.closed)
}

func TestServeCommand_ListenError(t *testing.T) {
	cmd := NewServeCommand(createServeTestDeps(mockCLIConfig(), &fakePublisher{}))
	cmd.SetArgs([]string{"--listen", "not-an-address"})
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	assert.Error(t, err)
}

func TestServeCommand_PublisherError(t *testing.T) {
	deps := createServeTestDeps(mockCLIConfig(), nil)
	deps.NewPublisher = func(context.Context, events.Config, logging.Logger) (events.Publisher, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	cmd := NewServeCommand(deps)
	cmd.SetArgs([]string{"--listen", "127.0.0.1:0"})
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to event backend")
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	cfg := mockCLIConfig()
	cfg.Events.Backend = "kafka"
	cmd := NewServeCommand(createServeTestDeps(cfg, &fakePublisher{}))
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.backend")
}

func TestServeCommand_InvalidLogLevel(t *testing.T) {
	cmd := NewServeCommand(createServeTestDeps(mockCLIConfig(), &fakePublisher{}))
	cmd.SetArgs([]string{"--log-level", "trace"})
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := executeCommand(NewSchemaCommand())
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "AnalysisResult", schema["title"])
	assert.Contains(t, schema, "properties")
}
