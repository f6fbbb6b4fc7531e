package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"igdm/internal/crypto"
	"igdm/internal/errs"
	"igdm/internal/model/api"
)

func TestLoginEncryptsCredential(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	var got api.LoginRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/public-key", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.PublicKeyResponse{PublicKey: pubPEM})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(api.LoginResponse{AccountID: "42", Handle: got.Username})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New(srv.URL).Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "alice", resp.Handle)

	// The plaintext never goes on the wire, and the ciphertext round-trips.
	require.Empty(t, got.Password)
	require.NotEmpty(t, got.EncryptedPassword)
	require.NotContains(t, got.EncryptedPassword, "hunter2")

	plain, err := crypto.DecryptCredential(got.EncryptedPassword, key)
	require.NoError(t, err)
	require.Equal(t, "hunter2", plain)
}

func TestErrorBodiesBecomeTypedErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/inbox", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: api.ErrorBody{
			Kind:              "rate_limited",
			Message:           "upstream is throttling requests",
			RetryAfterSeconds: 30,
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := New(srv.URL).Inbox(context.Background(), 20, false)
	require.Equal(t, errs.KindRateLimited, errs.KindOf(err))
	require.Equal(t, 30*time.Second, errs.RetryAfterOf(err))
	require.Contains(t, err.Error(), "throttling")
}

func TestNonJSONErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Health(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestTargetsAreEscaped(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(api.ThreadResponse{})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Thread(context.Background(), "a/b", 20)
	require.NoError(t, err)
	require.Equal(t, "/thread/a%2Fb", gotPath)
}

func TestSendToUserStripsAt(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(api.SendResponse{})
	}))
	defer srv.Close()

	_, err := New(srv.URL).SendToUser(context.Background(), "@bob", "hi")
	require.NoError(t, err)
	require.Equal(t, "/send/bob", gotPath)
}
