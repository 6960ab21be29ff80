package client

import (
	"context"
	"errors"
	"net"
	"strings"

	"money42/internal/domain"

	"github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned while another redemption is in flight
	ErrBusy = errors.New("a redemption is already in progress")
	// ErrNotSignedIn is returned when no identity is present
	ErrNotSignedIn = errors.New("not signed in")
)

// Result is the outcome of one redemption, ready to be rendered
type Result struct {
	OK      bool
	Message string          // User-facing text, success or failure
	Status  int             // HTTP status of a failure; 0 on transport errors
	Type    domain.CodeType // Set on success
	Amount  int64           // Set on success
	Balance int64           // Balance after success
}

// BalanceRefresher re-reads the balance into AppState
type BalanceRefresher interface {
	RefreshBalance(ctx context.Context)
}

// Workflow redeems the code held in AppState
type Workflow struct {
	api      *Client
	state    *AppState
	balances BalanceRefresher
	log      logrus.FieldLogger
}

// NewWorkflow returns a Workflow
func NewWorkflow(api *Client, state *AppState, balances BalanceRefresher, log logrus.FieldLogger) *Workflow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Workflow{api: api, state: state, balances: balances, log: log}
}

// Redeem submits the current input. Blank input returns (nil, nil) without
// touching the network or the state.
func (w *Workflow) Redeem(ctx context.Context) (*Result, error) {
	code := strings.TrimSpace(w.state.Input())
	if code == "" {
		return nil, nil
	}
	if w.state.User() == nil {
		return nil, ErrNotSignedIn
	}
	if !w.state.SetBusy(true) {
		return nil, ErrBusy
	}
	defer w.state.SetBusy(false)

	r, err := w.api.Redeem(ctx, code)
	if err != nil {
		res := failure(err)
		w.log.WithError(err).WithField("code", code).Debug("Redemption failed")
		w.state.SetResult(res)
		return res, nil
	}
	if r == nil {
		return nil, nil
	}

	res := &Result{OK: true, Message: r.Message, Type: r.Type, Amount: r.Amount, Balance: r.Balance}
	w.state.SetBalance(r.Balance)
	w.state.SetInput("")
	w.state.SetResult(res)
	w.balances.RefreshBalance(ctx)
	return res, nil
}

// failure turns a redemption error into a Result carrying the server's message
func failure(err error) *Result {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &Result{Message: apiErr.Message, Status: apiErr.Status}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Result{Message: "the server did not answer in time, please try again"}
	}
	return &Result{Message: domain.ErrRedeemFailed.Error()}
}
