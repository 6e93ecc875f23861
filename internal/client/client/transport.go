package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"golang.org/x/sync/singleflight"
)

// TokenSource holds the credential pair the transport works with. The
// session manager implements it.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	// AccessExpiresAt is an unverified hint; zero means unknown.
	AccessExpiresAt() time.Time
	SetAccessToken(token string)
	// Expire tears the session down.
	Expire()
}

// RefreshFunc exchanges a refresh credential for a new access credential.
type RefreshFunc func(ctx context.Context, refresh string) (string, error)

// AuthTransport attaches the bearer access credential to every request and
// recovers from expiry: on 401 it refreshes once and replays the request
// once. Concurrent refreshes for the same refresh credential are coalesced
// into a single exchange.
type AuthTransport struct {
	base    http.RoundTripper
	tokens  TokenSource
	refresh RefreshFunc
	skew    time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewAuthTransport wraps base. When skew is positive, a request whose
// access credential expires within skew refreshes before it is sent.
func NewAuthTransport(base http.RoundTripper, tokens TokenSource, refresh RefreshFunc, skew time.Duration) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{base: base, tokens: tokens, refresh: refresh, skew: skew, now: time.Now}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	access := t.tokens.AccessToken()

	if access != "" && t.expiringSoon() {
		fresh, err := t.Renew(ctx, access)
		if err != nil {
			closeBody(req)
			return nil, err
		}
		access = fresh
	}

	resp, err := t.send(req, access, req.Body)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.tokens.RefreshToken() == "" {
		return resp, err
	}

	body, ok := rewind(req)
	if !ok {
		return resp, nil
	}
	drain(resp)

	fresh, err := t.Renew(ctx, access)
	if err != nil {
		return nil, err
	}

	resp, err = t.send(req, fresh, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		t.tokens.Expire()
		return nil, common.ErrSessionExpired
	}
	return resp, nil
}

// Renew returns an access credential newer than stale, running at most one
// refresh exchange per refresh credential at a time. A transport failure is
// retried once; any other failure expires the session.
func (t *AuthTransport) Renew(ctx context.Context, stale string) (string, error) {
	if cur := t.tokens.AccessToken(); cur != "" && cur != stale {
		return cur, nil
	}
	refresh := t.tokens.RefreshToken()
	if refresh == "" {
		return "", common.ErrSessionExpired
	}

	v, err, _ := t.group.Do(refresh, func() (any, error) {
		if cur := t.tokens.AccessToken(); cur != "" && cur != stale {
			return cur, nil
		}

		// The exchange outlives cancellation of whichever caller started it.
		rctx := context.WithoutCancel(ctx)
		access, err := t.refresh(rctx, refresh)
		if err != nil && errors.Is(err, ErrUnavailable) {
			access, err = t.refresh(rctx, refresh)
		}
		if err != nil {
			t.tokens.Expire()
			return "", err
		}

		t.tokens.SetAccessToken(access)
		return access, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSessionExpired, err)
	}
	return v.(string), nil
}

func (t *AuthTransport) expiringSoon() bool {
	if t.skew <= 0 {
		return false
	}
	exp := t.tokens.AccessExpiresAt()
	return !exp.IsZero() && !t.now().Add(t.skew).Before(exp)
}

func (t *AuthTransport) send(req *http.Request, access string, body io.ReadCloser) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Body = body
	if access != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+access)
	}
	return t.base.RoundTrip(r)
}

// rewind returns a fresh copy of the request body for a replay.
func rewind(req *http.Request) (io.ReadCloser, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	return body, true
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
