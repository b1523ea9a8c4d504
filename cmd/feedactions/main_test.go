package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "worker", "push", "sign", "stats", "history", "catalog"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	worker, _, err := root.Find([]string{"worker"})
	require.NoError(t, err)
	assert.True(t, worker.Hidden)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FEEDACTIONS_TEST_VALUE", "")
	assert.Equal(t, "fallback", envOr("FEEDACTIONS_TEST_VALUE", "fallback"))

	t.Setenv("FEEDACTIONS_TEST_VALUE", "set")
	assert.Equal(t, "set", envOr("FEEDACTIONS_TEST_VALUE", "fallback"))
}
