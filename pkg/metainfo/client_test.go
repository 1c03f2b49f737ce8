// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package metainfo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lookupd.io/lookupd/pkg/lookup"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer good-session" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	router.HandleFunc("/api/objects/lookup-table-files/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		namespace := r.URL.Query().Get("namespace")
		if name == "test.csv" && (namespace == "lookup_test" || namespace == "search") {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"namespace": "lookup_test",
				"owner":     "nobody",
			})
			return
		}
		http.NotFound(w, r)
	})
	router.HandleFunc("/api/apps/visible", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{
			"apps": {"search", "lookup_test"},
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestResolveObject(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	client := NewClient(zaptest.NewLogger(t), server.URL, time.Second)

	object, err := client.ResolveObject(ctx, "test.csv", "lookup_test", "", "good-session")
	require.NoError(t, err)
	require.True(t, object.Exists)
	require.Equal(t, "lookup_test", object.Namespace)
	require.Equal(t, "", object.Owner)

	object, err = client.ResolveObject(ctx, "missing.csv", "lookup_test", "", "good-session")
	require.NoError(t, err)
	require.False(t, object.Exists)
}

func TestListVisibleApps(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	client := NewClient(zaptest.NewLogger(t), server.URL, time.Second)

	apps, err := client.ListVisibleApps(ctx, "search", "good-session")
	require.NoError(t, err)
	require.Equal(t, []string{"search", "lookup_test"}, apps)
}

func TestAuthFailure(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	client := NewClient(zaptest.NewLogger(t), server.URL, time.Second)

	_, err := client.ResolveObject(ctx, "test.csv", "lookup_test", "", "bad-session")
	require.True(t, lookup.ErrAuth.Has(err))
}

func TestConnectionFailure(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	server.Close()
	client := NewClient(zaptest.NewLogger(t), server.URL, time.Second)

	_, err := client.ResolveObject(ctx, "test.csv", "lookup_test", "", "good-session")
	require.True(t, lookup.ErrConnection.Has(err))
}

func TestResolutionThroughClient(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	client := NewClient(zaptest.NewLogger(t), server.URL, time.Second)
	resolver := lookup.NewResolver(zaptest.NewLogger(t), client, "/opt")

	location, err := resolver.Resolve(ctx, lookup.Reference{
		Name:      "test.csv",
		Namespace: "search",
		Owner:     "nobody",
	}, false, "good-session")
	require.NoError(t, err)
	require.Equal(t, "/opt/apps/lookup_test/lookups/test.csv", location.PhysicalPath)
}
