package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"money42/internal/client"
	"money42/internal/wallet"

	"github.com/google/subcommands"
)

type balanceCmd struct{}

func (*balanceCmd) Name() string           { return "balance" }
func (*balanceCmd) Synopsis() string       { return "show the current balance" }
func (*balanceCmd) Usage() string          { return "balance\n" }
func (*balanceCmd) SetFlags(*flag.FlagSet) {}

func (*balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(wallet.FormatYen(a.state.Balance()))
	return subcommands.ExitSuccess
}

type redeemCmd struct{}

func (*redeemCmd) Name() string           { return "redeem" }
func (*redeemCmd) Synopsis() string       { return "redeem a transaction code" }
func (*redeemCmd) Usage() string          { return "redeem <code>\n" }
func (*redeemCmd) SetFlags(*flag.FlagSet) {}

func (*redeemCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one code is required.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()

	a.state.SetInput(f.Arg(0))
	res, err := a.workflow.Redeem(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if res == nil {
		fmt.Println("Nothing to redeem.")
		return subcommands.ExitSuccess
	}
	printResult(os.Stdout, res, a.state.Balance())
	if !res.OK {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type historyCmd struct {
	page     int
	pageSize int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list redeemed codes, newest first" }
func (*historyCmd) Usage() string {
	return `history [-page <n>] [-page-size <n>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.page, "page", 1, "page number")
	f.IntVar(&c.pageSize, "page-size", 20, "entries per page (max 100)")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	h, err := a.api.History(ctx, c.page, c.pageSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	printHistory(os.Stdout, h)
	return subcommands.ExitSuccess
}

func printHistory(w io.Writer, h *client.HistoryPage) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCODE\tTYPE\tAMOUNT\tBALANCE")
	for _, tx := range h.Transactions {
		when := time.UnixMilli(tx.CreatedAt).Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", when, tx.Code, tx.Type, wallet.FormatYen(tx.Amount), wallet.FormatYen(tx.BalanceAfter))
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d total)\n", h.Page, h.TotalPages, h.Total)
}

func printResult(w io.Writer, res *client.Result, balance int64) {
	if res.OK {
		fmt.Fprintf(w, "✅ %s (balance %s)\n", res.Message, wallet.FormatYen(balance))
		return
	}
	fmt.Fprintf(w, "❌ %s\n", res.Message)
}

type shellCmd struct{}

func (*shellCmd) Name() string           { return "shell" }
func (*shellCmd) Synopsis() string       { return "interactive balance and code prompt" }
func (*shellCmd) SetFlags(*flag.FlagSet) {}
func (*shellCmd) Usage() string {
	return `shell

  Shows the balance and prompts for codes. Type "refresh" to re-read the
  balance, "logout" to sign out, or "quit" to leave.
`
}

func (*shellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		return subcommands.ExitFailure
	}
	defer a.Close()
	if err := a.requireUser(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := runShell(ctx, a, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// runShell is the signed-in screen: balance, then one code per line
func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Signed in as %s\n", a.state.User().Email)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Balance: %s\ncode> ", wallet.FormatYen(a.state.Balance()))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "refresh":
			a.sessions.RefreshBalance(ctx)
			continue
		case "logout":
			if err := a.sessions.SignOut(ctx); err != nil {
				fmt.Fprintf(out, "Warning: server sign-out failed: %s\n", errorMessage(err))
			}
			fmt.Fprintln(out, "Signed out.")
			return nil
		}
		a.state.SetInput(line)
		res, err := a.workflow.Redeem(ctx)
		switch {
		case errors.Is(err, client.ErrBusy):
			fmt.Fprintln(out, "Still working on the previous code.")
		case err != nil:
			return err
		case res != nil:
			printResult(out, res, a.state.Balance())
		}
	}
}
