package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "aegisctl 1.0.0")
}

func TestLogsPurge_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("AEGIS_DATABASE_URL", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"logs", "purge"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database URL")
}

func TestLogsPurge_RejectsNonPositiveRetention(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"logs", "purge", "--database-url", "postgres://localhost/x", "--older-than", "0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "older-than")
}
