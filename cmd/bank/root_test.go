package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootRunsREPLByDefault(t *testing.T) {
	out, _, err := execute(t, "1\nAlice\n500\nSavings\n9\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created successfully. Account Number: 1")
	assert.Contains(t, out, "Exiting the system.")
}

func TestREPLLogsToStderr(t *testing.T) {
	out, logs, err := execute(t, "1\nAlice\n500\nSavings\n7\n9\n", "repl", "--log-level", "debug")
	require.NoError(t, err)
	assert.NotContains(t, out, "interest applied")
	assert.Contains(t, logs, "interest applied")
}

func TestPolicyFromEnvironment(t *testing.T) {
	t.Setenv("BANK_MINIMUM_BALANCE", "250")

	out, _, err := execute(t, "1\nAlice\n200\nSavings\n9\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Initial deposit must be at least 250.0.")
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "", "--log-level", "loud")
	require.Error(t, err)
}

func TestNewAppWiresAudit(t *testing.T) {
	t.Setenv("BANK_AUDIT", "false")
	opts := &rootOptions{envFile: filepath.Join(t.TempDir(), "missing.env")}
	cfg, err := opts.load()
	require.NoError(t, err)

	logger, err := newLogger(&bytes.Buffer{}, cfg, true)
	require.NoError(t, err)
	a, err := newApp(cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, a.audit)

	cfg.AuditEnabled = true
	a, err = newApp(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, a.audit)

	_, err = a.ledger.CreateAccount("Alice", 500, "Savings")
	require.NoError(t, err)
	assert.Equal(t, 1, a.audit.Len())
	assert.True(t, a.audit.Verify())
}
