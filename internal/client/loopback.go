package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// callbackPath is where the server redirects the browser after OAuth
const callbackPath = "/callback"

// Loopback receives the OAuth redirect on 127.0.0.1 at a random port
type Loopback struct {
	ln     net.Listener
	srv    *http.Server
	tokens chan loopbackResult
}

type loopbackResult struct {
	token string
	err   error
}

// ListenLoopback starts the callback listener
func ListenLoopback() (*Loopback, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	l := &Loopback{ln: ln, tokens: make(chan loopbackResult, 1)}
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = l.srv.Serve(ln) }()
	return l, nil
}

// RedirectURL is the redirect_to value to hand the server
func (l *Loopback) RedirectURL() string {
	return "http://" + l.ln.Addr().String() + callbackPath
}

func (l *Loopback) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := loopbackResult{token: q.Get("access_token")}
	switch {
	case q.Get("error") != "":
		res.err = fmt.Errorf("sign-in failed: %s", q.Get("error"))
	case res.token == "":
		res.err = errors.New("sign-in failed: no access token in redirect")
	}
	select {
	case l.tokens <- res:
	default: // a result is already pending
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if res.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, res.err.Error())
		return
	}
	fmt.Fprintln(w, "Signed in to money42. You can close this window.")
}

// Wait blocks until the redirect arrives or ctx is done
func (l *Loopback) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-l.tokens:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the listener
func (l *Loopback) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}
