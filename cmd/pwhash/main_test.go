package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun_HashesStdinPassword(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"--stdin", "--cost", "4"}, strings.NewReader("s3cret-pass\n"), &stdout, &stderr)
	require.NoError(t, err)

	digest := strings.TrimSpace(stdout.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte("s3cret-pass")))

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestRun_NonTerminalPromptFallsBackToLine(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"-c", "4"}, strings.NewReader("piped-pass\n"), &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "Password:")
	assert.NotEmpty(t, strings.TrimSpace(stdout.String()))
}

func TestRun_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		input   string
		wantErr string
	}{
		{name: "empty password", args: []string{"--stdin", "-c", "4"}, input: "   \n", wantErr: "empty"},
		{name: "no input", args: []string{"--stdin", "-c", "4"}, input: "", wantErr: "read password"},
		{name: "too long", args: []string{"--stdin", "-c", "4"}, input: strings.Repeat("a", 73) + "\n", wantErr: "72 bytes"},
		{name: "cost too low", args: []string{"--stdin", "-c", "2"}, input: "pw\n", wantErr: "cost must be"},
		{name: "stray argument", args: []string{"--stdin", "extra"}, input: "pw\n", wantErr: "unexpected argument"},
		{name: "unknown flag", args: []string{"--nope"}, input: "pw\n", wantErr: "unknown flag"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tc.args, strings.NewReader(tc.input), &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Empty(t, stdout.String())
		})
	}
}
