package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

func TestRunDoctorChecksEveryEndpoint(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RequestURI())
		mu.Unlock()
		if r.URL.Path == "/api/learning/recommendations/student_demo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	client, err := backend.New(backend.Config{BaseURL: upstream.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	var out bytes.Buffer
	passed, total := runDoctor(context.Background(), client, "student_demo", &out)
	require.Equal(t, 5, total)
	require.Equal(t, 4, passed)
	require.Equal(t, doctorPaths("student_demo"), seen)
	require.Contains(t, out.String(), "4/5 endpoints passed")
	require.Contains(t, out.String(), "WARN")
}
