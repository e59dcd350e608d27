package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestGetSessionSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/auth/session", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 7, "username": "alice"})
	}))

	id, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", id.Username)
	require.EqualValues(t, 7, id.ID)
}

func TestGetSessionUnauthorized(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := c.GetSession(context.Background())
		require.ErrorIs(t, err, ErrUnauthorized)
	}
}

func TestGetSessionServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.GetSession(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLoginStatusShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bob", req["username"])
		json.NewEncoder(w).Encode(map[string]string{"status": "ACCOUNT_PASSWORD_EXPIRED"})
	}))

	res, err := c.Login(context.Background(), "bob", "ChangeMe")
	require.NoError(t, err)
	require.Equal(t, StatusAccountPasswordExpired, res.Status)
	require.Empty(t, res.Token)
}

func TestLoginTokenShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "tok-123",
			"user":  map[string]interface{}{"id": 9, "username": "alice"},
		})
	}))

	res, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.Equal(t, "tok-123", res.Token)
	require.Equal(t, "alice", res.User.Username)
	require.EqualValues(t, 9, res.User.ID)
}

func TestLoginUnknownStatusString(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "SOMETHING_NEW"})
	}))

	res, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, res.Status)
}

func TestLoginBare401(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	res, err := c.Login(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	require.Equal(t, StatusIncorrectCredentials, res.Status)
}

func TestLoginTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url})
	_, err := c.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
}

func TestLogout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
	}))

	msg, err := c.Logout(context.Background())
	require.NoError(t, err)
	require.Equal(t, "logged out", msg)
}

func TestResetPasswordSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bob", req["username"])
		require.Equal(t, "NewPass1", req["newPassword"])
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.ResetPassword(context.Background(), "bob", "old", "NewPass1"))
}

func TestResetPasswordRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "too short"})
	}))

	err := c.ResetPassword(context.Background(), "bob", "old", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "too short")
}

func TestSessionCookiePersistsAcrossCalls(t *testing.T) {
	var gotCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "tradernet_session", Value: "abc", Path: "/"})
		json.NewEncoder(w).Encode(map[string]string{"status": "SUCCESS"})
	})
	mux.HandleFunc("/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("tradernet_session"); err == nil {
			gotCookie = cookie.Value
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 1, "username": "alice"})
	})

	c := newTestClient(t, mux)
	_, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	_, err = c.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", gotCookie)
}
