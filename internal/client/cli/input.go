package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/campusdesk/internal/client/api"
	"github.com/dmitrijs2005/campusdesk/internal/common"
	"golang.org/x/term"
)

// readPassword is replaced in tests so no terminal is needed.
var readPassword = term.ReadPassword

// ask prints "label: " and returns the trimmed answer. A last line that ends
// without a newline still counts as an answer.
func ask(r *bufio.Reader, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := r.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// askSecret reads a password without echo. The caller wipes the result.
func askSecret(w io.Writer, label string) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return pw, nil
}

// askRegistration collects a register form. An empty role is left out of
// the request so the server assigns student.
func askRegistration(r *bufio.Reader, w io.Writer) (api.RegisterRequest, error) {
	var req api.RegisterRequest
	var err error

	if req.Name, err = ask(r, w, "Name"); err != nil {
		return req, err
	}
	if req.Email, err = ask(r, w, "Email"); err != nil {
		return req, err
	}
	role, err := ask(r, w, "Role [student|staff|admin, default student]")
	if err != nil {
		return req, err
	}
	req.Role = strings.ToLower(role)

	pw, err := askSecret(w, "Password")
	if err != nil {
		return req, err
	}
	defer common.WipeByteArray(pw)
	req.Password = string(pw)
	return req, nil
}

// askCredentials collects a login form.
func askCredentials(r *bufio.Reader, w io.Writer) (api.LoginRequest, error) {
	var req api.LoginRequest

	email, err := ask(r, w, "Email")
	if err != nil {
		return req, err
	}
	req.Email = email

	pw, err := askSecret(w, "Password")
	if err != nil {
		return req, err
	}
	defer common.WipeByteArray(pw)
	req.Password = string(pw)
	return req, nil
}
