package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	require.NotNil(t, cmd, "BuildCLI should return a non-nil command")
	assert.Equal(t, "kvwal", cmd.Use, "Root command should be 'kvwal'")

	commands := cmd.Commands()
	assert.Len(t, commands, 4, "Should have 4 subcommands")

	names := make(map[string]bool)
	for _, c := range commands {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"], "Should have 'serve' command")
	assert.True(t, names["get"], "Should have 'get' command")
	assert.True(t, names["set"], "Should have 'set' command")
	assert.True(t, names["delete"], "Should have 'delete' command")

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag, "Should have --config flag")
}

func TestBuildServeCommand(t *testing.T) {
	cmd := buildServeCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestBuildGetCommandRequiresExactlyOneArg(t *testing.T) {
	cmd := buildGetCommand()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a"}))
}

func TestBuildSetCommandRequiresExactlyTwoArgs(t *testing.T) {
	cmd := buildSetCommand()
	assert.Error(t, cmd.Args(cmd, []string{"a"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestBuildDeleteCommandRequiresExactlyOneArg(t *testing.T) {
	cmd := buildDeleteCommand()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"a"}))
}

func TestNewLoggerLevelFollowsEnv(t *testing.T) {
	t.Setenv("ENV", "development")
	devLog := newLogger()
	assert.True(t, devLog.Enabled(context.Background(), slog.LevelInfo), "development ENV should enable info level")

	t.Setenv("ENV", "production")
	prodLog := newLogger()
	assert.False(t, prodLog.Enabled(context.Background(), slog.LevelInfo), "non-development ENV should only log errors")
}
