package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgumentValidation(t *testing.T) {
	tests := map[string][]string{
		"create without name":   {"create"},
		"verify with two names": {"verify", "a", "b"},
		"migrate with one name": {"migrate", "a"},
		"list with a name":      {"list", "a"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(args)

			require.Error(t, rootCmd.ExecuteContext(context.Background()))
		})
	}
}

func TestFlagDefaults(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	assert.Equal(t, "30m0s", flags.Lookup("timeout").DefValue)
	assert.Equal(t, "pg_dump", flags.Lookup("pg-dump").DefValue)
	assert.Equal(t, "psql", flags.Lookup("psql").DefValue)
}
