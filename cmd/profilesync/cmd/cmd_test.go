package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nfrund/profilesync/internal/config"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/nfrund/profilesync/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		userID, token, imageFile, resyncUsername = "", "", "", ""
	})
}

func TestSession(t *testing.T) {
	resetFlags(t)

	_, err := session(&config.Config{})
	assert.EqualError(t, err, "--user is required")

	userID = "user_1"
	_, err = session(&config.Config{})
	assert.Error(t, err)

	sess, err := session(&config.Config{AppJWTSecret: "s3cret"})
	require.NoError(t, err)
	sub, err := middleware.ParseToken([]byte("s3cret"), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", sub)

	token = "given"
	sess, err = session(&config.Config{AppJWTSecret: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "given", sess.Token)
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	out := domain.Outcome{Status: domain.StatusNoOp, Message: "No changes to save"}
	require.NoError(t, printOutcome(&buf, out))
	assert.Contains(t, buf.String(), `"status": "noop"`)

	buf.Reset()
	err := printOutcome(&buf, domain.Outcome{Status: domain.StatusPartialFailure, Message: "application store unreachable"})
	assert.EqualError(t, err, "partial_failure: application store unreachable")
}

func TestTokenCommand(t *testing.T) {
	resetFlags(t)
	t.Setenv("APP_JWT_SECRET", "s3cret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--user", "user_9"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	sub, err := middleware.ParseToken([]byte("s3cret"), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "user_9", sub)
}
