// Command wallet is the money42 command-line client.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	serverURL   = flag.String("server", envOr("MONEY42_SERVER", "http://localhost:8080"), "money42 server URL")
	sessionPath = flag.String("session", "", "session file (default ~/.money42/session.json)")
	verbose     = flag.Bool("v", false, "verbose logging")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&signupCmd{}, "account")
	commander.Register(&loginCmd{}, "account")
	commander.Register(&oauthCmd{}, "account")
	commander.Register(&logoutCmd{}, "account")

	commander.Register(&balanceCmd{}, "wallet")
	commander.Register(&redeemCmd{}, "wallet")
	commander.Register(&historyCmd{}, "wallet")
	commander.Register(&shellCmd{}, "wallet")

	flag.Parse()
	logrus.SetLevel(logrus.WarnLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := int(commander.Execute(ctx))
	stop()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
