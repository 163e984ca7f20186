// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusGone, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusServiceUnavailable, KindNetwork},
		{http.StatusBadGateway, KindNetwork},
		{http.StatusInternalServerError, KindUnexpected},
		{http.StatusBadRequest, KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := FromStatus(tt.status, "")
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Kind)
			assert.Equal(t, tt.status, f.StatusCode)
		})
	}

	assert.Nil(t, FromStatus(http.StatusOK, ""))
	assert.Nil(t, FromStatus(http.StatusNoContent, ""))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"failure keeps kind", FromStatus(401, "bad creds"), KindAuth},
		{"wrapped failure", fmt.Errorf("fetching works: %w", FromStatus(404, "")), KindNotFound},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindTimeout},
		{"connection refused", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, KindNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "x"}, KindNetwork},
		{"plain error", errors.New("boom"), KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFailureIs(t *testing.T) {
	err := fmt.Errorf("orcid: %w", FromStatus(http.StatusForbidden, "invalid_client"))

	assert.ErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsFatal(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(Fail(KindNotFound, errors.New("no profile"))))
}

func TestFailureError(t *testing.T) {
	tests := []struct {
		name string
		f    *Failure
		want string
	}{
		{"message and status", &Failure{Kind: KindAuth, StatusCode: 401, Message: "invalid_client"}, "AUTH_ERROR (status 401): invalid_client"},
		{"message only", &Failure{Kind: KindRateLimited, Message: "captcha page"}, "RATE_LIMITED: captcha page"},
		{"status and cause", &Failure{Kind: KindUnexpected, StatusCode: 500, Err: errors.New("oops")}, "UNEXPECTED (status 500): oops"},
		{"status only", &Failure{Kind: KindUnexpected, StatusCode: 500}, "UNEXPECTED (status 500)"},
		{"cause only", Fail(KindNetwork, errors.New("refused")), "NETWORK_ERROR: refused"},
		{"bare", &Failure{Kind: KindTimeout}, "TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	canceled := fmt.Errorf("get: %w", context.Canceled)
	assert.Same(t, canceled, Wrap(canceled), "cancellation passes through")

	orig := FromStatus(404, "")
	assert.Same(t, error(orig), Wrap(orig))

	wrapped := Wrap(context.DeadlineExceeded)
	var f *Failure
	require.ErrorAs(t, wrapped, &f)
	assert.Equal(t, KindTimeout, f.Kind)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

func TestFunc(t *testing.T) {
	var got string
	fn := Func{From: types.SourceAggregator, Fn: func(_ context.Context, id string) (Profile, error) {
		got = id
		return Profile{Name: "Jane Doe", Works: []payload.Value{payload.Of(map[string]any{})}}, nil
	}}

	var f Fetcher = fn
	assert.Equal(t, types.SourceAggregator, f.Source())
	p, err := f.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Len(t, p.Works, 1)
}
