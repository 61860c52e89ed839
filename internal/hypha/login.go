package hypha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrLoginFailed is returned when the interactive flow completes without
// producing a token.
var ErrLoginFailed = errors.New("hypha: login did not produce a token")

// loginService is the well-known id of the server's login service.
const loginService = "public/hypha-login"

// loginPollInterval is the wait between token availability checks.
const loginPollInterval = 2 * time.Second

// loginTimeout bounds the whole interactive flow; the operator has to
// open a browser and sign in, so this is generous.
const loginTimeout = 5 * time.Minute

// LoginPrompt carries what the operator needs to complete the sign-in.
type LoginPrompt struct {
	LoginURL string `json:"login_url"`
	Key      string `json:"key"`
}

// loginCheck is the reply of the login service's check method.
type loginCheck struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

// Login runs the interactive browser flow against an anonymous session and
// returns the bearer token the server minted. promptFn is invoked once with
// the URL the operator must visit; it must stay visible even in quiet mode.
// Only the returned token is this program's concern — caching it is the
// credential store's job.
func Login(ctx context.Context, opts Options, promptFn func(LoginPrompt), logger *slog.Logger) (string, error) {
	// The login service accepts anonymous connections.
	opts.Token = ""

	client, err := Connect(ctx, opts, logger)
	if err != nil {
		return "", err
	}
	defer client.Close()

	var prompt LoginPrompt
	if err := client.Call(ctx, loginService, "start", nil, &prompt); err != nil {
		return "", fmt.Errorf("starting login flow: %w", err)
	}

	promptFn(prompt)

	deadline, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	for {
		var check loginCheck

		err := client.Call(deadline, loginService, "check", map[string]any{"key": prompt.Key}, &check)
		if err != nil {
			return "", fmt.Errorf("waiting for login: %w", err)
		}

		if check.Token != "" {
			logger.Info("login completed", "user_id", check.UserID)
			return check.Token, nil
		}

		select {
		case <-deadline.Done():
			return "", fmt.Errorf("%w: %w", ErrLoginFailed, deadline.Err())
		case <-time.After(loginPollInterval):
		}
	}
}
