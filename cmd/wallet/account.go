package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"money42/internal/auth"
	"money42/internal/client"
	"money42/internal/wallet"

	"github.com/google/subcommands"
	"github.com/pkg/browser"
)

type signupCmd struct {
	email    string
	password string
}

func (*signupCmd) Name() string     { return "signup" }
func (*signupCmd) Synopsis() string { return "create an account with email and password" }
func (*signupCmd) Usage() string {
	return `signup [-email <email>] [-password <password>]

  Creates an account and signs in. Missing values are prompted for.
`
}

func (c *signupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "account password (prompted when empty)")
}

func (c *signupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return passwordAuth(ctx, c.email, c.password, (*client.SessionManager).SignUp)
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in with email and password" }
func (*loginCmd) Usage() string {
	return `login [-email <email>] [-password <password>]

  Signs in and stores the session. Missing values are prompted for.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "account password (prompted when empty)")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return passwordAuth(ctx, c.email, c.password, (*client.SessionManager).SignIn)
}

type authFunc func(*client.SessionManager, context.Context, string, string) (*auth.Session, error)

func passwordAuth(ctx context.Context, email, password string, do authFunc) subcommands.ExitStatus {
	email, password, err := credentials(email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading credentials: %v\n", err)
		return subcommands.ExitFailure
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()

	s, err := do(a.sessions, ctx, email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	fmt.Printf("Signed in as %s. Balance: %s\n", s.User.Email, wallet.FormatYen(a.state.Balance()))
	return subcommands.ExitSuccess
}

type oauthCmd struct {
	provider string
	timeout  time.Duration
	noOpen   bool
}

func (*oauthCmd) Name() string     { return "oauth" }
func (*oauthCmd) Synopsis() string { return "sign in through an OAuth provider in the browser" }
func (*oauthCmd) Usage() string {
	return `oauth [-provider google] [-timeout 5m] [-no-browser]

  Opens the provider's sign-in page and waits for the browser to come back
  to a local callback address.
`
}

func (c *oauthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.provider, "provider", "google", "OAuth provider")
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "how long to wait for the browser")
	f.BoolVar(&c.noOpen, "no-browser", false, "print the URL instead of opening a browser")
}

func (c *oauthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()

	lb, err := client.ListenLoopback()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting callback listener: %v\n", err)
		return subcommands.ExitFailure
	}
	defer lb.Close()

	u := a.api.OAuthURL(c.provider, lb.RedirectURL())
	if c.noOpen || browser.OpenURL(u) != nil {
		fmt.Printf("Open this URL to sign in:\n\n  %s\n\n", u)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	token, err := lb.Wait(waitCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	s, err := a.sessions.CompleteOAuth(ctx, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	fmt.Printf("Signed in as %s. Balance: %s\n", s.User.Email, wallet.FormatYen(a.state.Balance()))
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "sign out and forget the stored session" }
func (*logoutCmd) Usage() string          { return "logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.sessions.SignOut(ctx); err != nil {
		// The local session is gone either way
		fmt.Fprintf(os.Stderr, "Warning: server sign-out failed: %s\n", errorMessage(err))
	}
	fmt.Println("Signed out.")
	return subcommands.ExitSuccess
}
