package cli

import (
	"bytes"
	"testing"

	"github.com/roach88/seedsindex/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "seedsindex", cmd.Use)
	assert.Contains(t, cmd.Long, "participant registry")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "find", "get", "publish", "retract", "topics", "id"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"driver", "endpoint", "contract", "private-key"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, name)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	listenFlag := runCmd.Flags().Lookup("listen")
	require.NotNil(t, listenFlag)
	assert.Equal(t, "", listenFlag.DefValue)
}

func TestPublishCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	publishCmd, _, err := cmd.Find([]string{"publish"})
	require.NoError(t, err)

	require.NotNil(t, publishCmd.Flags().Lookup("location"))

	topicFlag := publishCmd.Flags().Lookup("topic")
	require.NotNil(t, topicFlag)
	assert.Equal(t, "t", topicFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "yaml", "topics"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"run", "--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Start the synchronizer")
	assert.Contains(t, output, "--listen")
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv(config.EnvPrivateKey, "")
	contract := "0x5fbdb2315678afecb367f032d93f642f64180aa3"

	opts := &RootOptions{Contract: contract}
	cfg, err := opts.loadConfig(config.Overrides{Listen: "127.0.0.1:9099"})
	require.NoError(t, err)
	assert.Equal(t, contract, cfg.Ledger.Contract)
	assert.Equal(t, "127.0.0.1:9099", cfg.HTTP.Listen)

	cfg, err = opts.loadConfig(config.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.HTTP.Listen)

	// The schema still constrains flag values.
	opts.Contract = "0x1234"
	_, err = opts.loadConfig(config.Overrides{})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
