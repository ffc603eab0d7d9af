package loopback

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEphemeral returns a receiver bound to a random local port and its base URL.
func newEphemeral(t *testing.T, timeout time.Duration) (*Receiver, func() string) {
	t.Helper()
	r, err := New(Config{RedirectURL: "http://127.0.0.1:1/callback", Timeout: timeout})
	require.NoError(t, err)
	var bound string
	r.listen = func(network, _ string) (net.Listener, error) {
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			bound = "http://" + ln.Addr().String()
		}
		return ln, err
	}
	return r, func() string { return bound }
}

func get(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test against local listener
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{RedirectURL: "https://127.0.0.1:8080/cb"})
	require.Error(t, err)
	_, err = New(Config{RedirectURL: "http://example.com:8080/cb"})
	require.Error(t, err)
	_, err = New(Config{RedirectURL: "http://localhost/cb"})
	require.Error(t, err)

	r, err := New(Config{RedirectURL: "http://localhost:8765"})
	require.NoError(t, err)
	assert.Equal(t, "/", r.path)
	assert.Equal(t, 5*time.Minute, r.timeout)
}

func TestReceiver_Await(t *testing.T) {
	r, base := newEphemeral(t, 5*time.Second)

	code, err := r.Await(context.Background(), "st-1", func() error {
		go func() {
			assert.Equal(t, http.StatusBadRequest, get(t, base()+"/callback?code=x&state=forged"))
			assert.Equal(t, http.StatusOK, get(t, base()+"/callback?code=abc&state=st-1"))
		}()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestReceiver_AwaitProviderError(t *testing.T) {
	r, base := newEphemeral(t, 5*time.Second)

	_, err := r.Await(context.Background(), "st-1", func() error {
		go get(t, base()+"/callback?error=access_denied")
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCredential(err))
}

func TestReceiver_AwaitTimeoutAndCancel(t *testing.T) {
	r, _ := newEphemeral(t, 50*time.Millisecond)
	_, err := r.Await(context.Background(), "st", func() error { return nil })
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))

	r, _ = newEphemeral(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Await(ctx, "st", func() error { return nil })
	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err))
}
