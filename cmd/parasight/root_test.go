package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"serve", "ingest", "dedup", "list"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Flags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, flag)
	assert.Equal(t, "./configs", flag.DefValue)

	require.NotNil(t, ingestCmd.Flags().Lookup("note"))
	require.NotNil(t, listCmd.Flags().Lookup("bucket"))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "🛠 Tools", orDash("🛠 Tools"))
}
