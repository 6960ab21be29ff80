package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"money42/internal/client"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// app bundles the client pieces every command needs
type app struct {
	api      *client.Client
	state    *client.AppState
	sessions *client.SessionManager
	workflow *client.Workflow
}

// openApp restores the stored session, if any
func openApp(ctx context.Context) (*app, error) {
	p := *sessionPath
	if p == "" {
		p = client.DefaultSessionPath()
	}
	log := logrus.StandardLogger()
	a := &app{api: client.New(*serverURL), state: client.NewAppState()}
	a.sessions = client.NewSessionManager(a.api, a.state, &client.FileTokenStore{Path: p}, log)
	a.workflow = client.NewWorkflow(a.api, a.state, a.sessions, log)
	if err := a.sessions.Start(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) Close() { a.sessions.Close() }

// requireUser fails when nobody is signed in
func (a *app) requireUser() error {
	if a.state.User() == nil {
		return errors.New("not signed in; run `wallet login` first")
	}
	return nil
}

// credentials fills in a missing email or password from the terminal
func credentials(email, password string) (string, string, error) {
	in := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		if term.IsTerminal(int(os.Stdin.Fd())) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", "", err
			}
			password = string(b)
		} else {
			line, err := in.ReadString('\n')
			if err != nil {
				return "", "", err
			}
			password = strings.TrimRight(line, "\r\n")
		}
	}
	return email, password, nil
}

// errorMessage is the text shown for a failed call
func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
