package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand(strings.NewReader(stdin))
	cmd.Writer = &out
	cmd.ErrWriter = io.Discard
	err := cmd.Run(context.Background(), append([]string{"authctl"}, args...))
	return strings.TrimSpace(out.String()), err
}

func TestHashFromFlag(t *testing.T) {
	out, err := run(t, "", "hash", "--cost", "4", "--password", "password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("password123")))
}

func TestHashFromStdin(t *testing.T) {
	out, err := run(t, "secret1\n", "hash", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out), []byte("secret1")))
}

func TestHashRejectsEmptyAndBadCost(t *testing.T) {
	_, err := run(t, "", "hash", "--cost", "4")
	assert.Error(t, err)

	_, err = run(t, "", "hash", "--cost", "99", "--password", "x")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	out, err := run(t, "", "verify", "--hash", string(hash), "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = run(t, "", "verify", "--hash", string(hash), "--password", "wrong")
	assert.Error(t, err)

	_, err = run(t, "", "verify", "--hash", "plain", "--password", "secret1")
	assert.Error(t, err)
}
