package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/campusdesk/internal/client/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestAsk(t *testing.T) {
	var out bytes.Buffer

	got, err := ask(reader("  ann@campus.edu \n"), &out, "Email")
	require.NoError(t, err)
	assert.Equal(t, "ann@campus.edu", got)
	assert.Equal(t, "Email: ", out.String())
}

func TestAsk_LastLineWithoutNewline(t *testing.T) {
	got, err := ask(reader("Ann Lee"), io.Discard, "Name")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got)
}

func TestAsk_NoInput(t *testing.T) {
	_, err := ask(reader(""), io.Discard, "Email")
	require.ErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "reading email")
}

func TestAskRegistration(t *testing.T) {
	stubPassword(t, "correct horse")
	var out bytes.Buffer

	req, err := askRegistration(reader("Ann Lee\nann@campus.edu\nStaff\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, api.RegisterRequest{Name: "Ann Lee", Email: "ann@campus.edu", Password: "correct horse", Role: "staff"}, req)
	for _, label := range []string{"Name: ", "Email: ", "Role [", "Password: "} {
		assert.Contains(t, out.String(), label)
	}
}

func TestAskRegistration_DefaultRoleLeftEmpty(t *testing.T) {
	stubPassword(t, "pw")

	req, err := askRegistration(reader("Ann\nann@campus.edu\n\n"), io.Discard)
	require.NoError(t, err)
	assert.Empty(t, req.Role)
}

func TestAskRegistration_StopsAtMissingAnswer(t *testing.T) {
	called := false
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		called = true
		return []byte("pw"), nil
	}

	_, err := askRegistration(reader("Ann\n"), io.Discard)
	require.Error(t, err)
	assert.False(t, called, "password must not be asked before email and role")
}

func TestAskCredentials(t *testing.T) {
	stubPassword(t, "pw1")
	var out bytes.Buffer

	req, err := askCredentials(reader("ann@campus.edu\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, api.LoginRequest{Email: "ann@campus.edu", Password: "pw1"}, req)
	assert.Equal(t, "Email: Password: \n", out.String())
}

func TestAskCredentials_TerminalError(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }

	_, err := askCredentials(reader("ann@campus.edu\n"), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading password")
}
