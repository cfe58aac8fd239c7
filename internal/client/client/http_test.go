package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL+"/", 2*time.Second)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient(t *testing.T) {
	_, err := NewHTTPClient("", time.Second)
	assert.Error(t, err)

	c, err := NewHTTPClient("127.0.0.1:8080", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", c.baseURL)
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Alice", "email": "a@b.co", "password": "pw"}, body)

		writeJSON(w, http.StatusCreated, User{ID: "u-1", Name: "Alice", Email: "a@b.co"})
	})

	u, err := c.Register(context.Background(), "Alice", "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestRegister_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"statusCode": 409, "message": "identity already exists"})
	})

	_, err := c.Register(context.Background(), "Alice", "a@b.co", "pw")
	require.ErrorIs(t, err, ErrConflict)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "identity already exists", apiErr.Message)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/login", r.URL.Path)
		writeJSON(w, http.StatusOK, Session{User: User{ID: "u-1"}, AccessToken: "a", RefreshToken: "r"})
	})

	s, err := c.Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a", s.AccessToken)
	assert.Equal(t, "r", s.RefreshToken)
	assert.Equal(t, "u-1", s.User.ID)
}

func TestRefresh(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "r" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "a2"})
	})

	tok, err := c.Refresh(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "a2", tok)

	_, err = c.Refresh(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProfile_SendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, User{ID: "u-1"})
	})

	u, err := c.Profile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			err := c.Ping(context.Background())
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusText(tt.status), apiErr.Message)
		})
	}
}

func TestPing_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewHTTPClient(addr, time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.Profile(context.Background(), "tok")
	assert.ErrorContains(t, err, "decode response")
}
