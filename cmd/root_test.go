package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"assess", "serve", "seed-prices", "remind", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "opterra", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAssessCommand_Flags(t *testing.T) {
	flag := assessCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "assess command should have --file flag")
	assert.Equal(t, "f", flag.Shorthand)
	assert.Equal(t, "-", flag.DefValue)

	format := assessCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "table", format.DefValue)

	for _, name := range []string{"out", "explain", "no-cache"} {
		assert.NotNil(t, assessCmd.Flags().Lookup(name), "assess should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)

	remind := serveCmd.Flags().Lookup("remind-every")
	require.NotNil(t, remind)
	assert.Equal(t, "0s", remind.DefValue)
}

func TestSeedCommand_Flags(t *testing.T) {
	for _, name := range []string{"catalog", "provider", "stale", "limit"} {
		assert.NotNil(t, seedCmd.Flags().Lookup(name), "seed-prices should have --%s flag", name)
	}
}
