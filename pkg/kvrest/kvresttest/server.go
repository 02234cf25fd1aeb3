// Package kvresttest serves the REST key-value protocol on top of an
// in-process miniredis instance.
package kvresttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Server is a running gateway. Redis exposes the backing store so tests can
// inspect or corrupt it directly.
type Server struct {
	*httptest.Server
	Redis *miniredis.Miniredis
	Token string
}

// NewServer starts a gateway that requires token as a bearer credential.
// Everything is torn down when the test ends.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}

		var args []string
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil || len(args) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "ERR malformed command"})
			return
		}

		cmd := make([]interface{}, len(args))
		for i, a := range args {
			cmd[i] = a
		}
		result, err := rdb.Do(r.Context(), cmd...).Result()
		if err == redis.Nil {
			json.NewEncoder(w).Encode(map[string]interface{}{"result": nil})
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"result": result})
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Server{Server: srv, Redis: mr, Token: token}
}
