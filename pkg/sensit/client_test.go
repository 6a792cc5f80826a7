package sensit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanksense/tanksense/pkg/types"
)

func fixtureAPI() *MockAPI {
	return &MockAPI{
		Username: "test@example.com",
		Password: "s3cret",
		UserID:   34081,
		Tanks: []MockTank{{
			SignalmanNo:  20001000,
			Name:         "TestTank",
			Model:        "TestModel",
			Capacity:     2000,
			LevelLitres:  1000,
			LevelPercent: 50,
			LastRead:     "2021-01-31T00:59:30.987",
			History: []types.Reading{
				{ReadingDate: time.Date(2021, 1, 25, 13, 59, 14, 0, time.UTC), LevelPercent: 100, LevelLitres: 2000},
				{ReadingDate: time.Date(2021, 1, 27, 0, 59, 16, 0, time.UTC), LevelPercent: 95, LevelLitres: 1900},
				{ReadingDate: time.Date(2021, 1, 29, 0, 59, 22, 0, time.UTC), LevelPercent: 94, LevelLitres: 1880},
				{ReadingDate: time.Date(2021, 1, 30, 0, 29, 30, 0, time.UTC), LevelPercent: 94, LevelLitres: 1880},
				{ReadingDate: time.Date(2021, 1, 31, 0, 59, 30, 0, time.UTC), LevelPercent: 92, LevelLitres: 1840},
			},
		}},
	}
}

func newTestClient(ts *httptest.Server) *Client {
	return NewClientWithTransport(NewTransport(ts.URL, "test-token", ts.Client()))
}

func TestClient(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		mock := fixtureAPI()
		ts := httptest.NewServer(mock)
		defer ts.Close()

		c := newTestClient(ts)
		err := c.Login(context.Background(), "test@example.com", "s3cret")
		require.NoError(t, err, "login should succeed")

		tanks, err := c.Tanks()
		require.NoError(t, err)
		require.Len(t, tanks, 1)
		assert.Equal(t, "20001000", tanks[0].SignalmanNo())
		assert.Equal(t, 1, mock.AuthCalls())
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		ts := httptest.NewServer(fixtureAPI())
		defer ts.Close()

		c := newTestClient(ts)
		err := c.Login(context.Background(), "test@example.com", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "rejected login should classify as invalid credentials")
		assert.NotErrorIs(t, err, ErrTransport)
	})

	t.Run("RemoteAPIError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, 107, "Unknown device", nil)
		}))
		defer ts.Close()

		c := newTestClient(ts)
		err := c.Login(context.Background(), "u", "p")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr, "non-credential failures should classify as APIError")
		assert.Equal(t, 107, apiErr.Code)
		assert.Equal(t, "Unknown device", apiErr.Description)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("MalformedEnvelope", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"unexpected": true}`))
		}))
		defer ts.Close()

		c := newTestClient(ts)
		err := c.Login(context.Background(), "u", "p")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Description, "malformed response")
	})

	t.Run("TransportError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := ts.Client()
		ts.Close()

		c := NewClientWithTransport(NewTransport(ts.URL, "test-token", client))
		err := c.Login(context.Background(), "u", "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("Timeout", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer ts.Close()

		client := ts.Client()
		client.Timeout = 20 * time.Millisecond

		c := NewClientWithTransport(NewTransport(ts.URL, "test-token", client))
		err := c.Login(context.Background(), "u", "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout, "exceeded wait should classify as timeout")
		assert.ErrorIs(t, err, ErrTransport, "a timeout is still a transport failure")
	})

	t.Run("TanksBeforeLogin", func(t *testing.T) {
		c := NewClient()
		_, err := c.Tanks()
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})

	t.Run("ReloginReplacesTanks", func(t *testing.T) {
		mock := fixtureAPI()
		ts := httptest.NewServer(mock)
		defer ts.Close()

		c := newTestClient(ts)
		require.NoError(t, c.Login(context.Background(), "test@example.com", "s3cret"))
		first, err := c.Tanks()
		require.NoError(t, err)

		require.NoError(t, c.Login(context.Background(), "test@example.com", "s3cret"))
		second, err := c.Tanks()
		require.NoError(t, err)

		require.Len(t, second, 1)
		assert.NotSame(t, first[0], second[0], "a second login should rebuild the tank list")
	})
}
