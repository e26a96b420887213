package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mydays", cmd.Use)
	assert.Contains(t, cmd.Long, "recurring tasks")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"add", "day", "done", "edit", "rm", "move", "search", "set", "sync", "serve"}

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

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestTaskFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"add", "edit"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			for _, flag := range []string{"date", "category", "priority", "repeat", "until", "count", "sub"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), "--%s", flag)
			}
		})
	}

	edit, _, err := cmd.Find([]string{"edit"})
	require.NoError(t, err)
	assert.NotNil(t, edit.Flags().Lookup("clear-until"))
	assert.NotNil(t, edit.Flags().Lookup("remove-sub"))
}

func TestRmCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	rm, _, err := cmd.Find([]string{"rm"})
	require.NoError(t, err)

	scopeFlag := rm.Flags().Lookup("scope")
	require.NotNil(t, scopeFlag)
	assert.Equal(t, "this", scopeFlag.DefValue)
}

func TestSetSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"theme", "view", "sound", "color", "custom-theme"} {
		sub, _, err := cmd.Find([]string{"set", name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "day"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnknownFlagIsCommandError(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"day", "--bogus"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
