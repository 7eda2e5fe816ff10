package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-tutor-web/internal/config"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

const pingTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the tutoring backend answers on every endpoint the pages use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if override, _ := cmd.Flags().GetString("backend"); override != "" {
			cfg.BackendBaseURL = override
		}

		client, err := backend.New(backend.Config{BaseURL: cfg.BackendBaseURL, Logger: zerolog.Nop()})
		if err != nil {
			return err
		}

		passed, total := runDoctor(cmd.Context(), client, cfg.StudentID, cmd.OutOrStdout())
		if passed != total {
			return fmt.Errorf("%d endpoint(s) need attention", total-passed)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().String("backend", "", "Backend base URL (overrides TUTOR_BACKEND_BASE_URL)")
}

func doctorPaths(studentID string) []string {
	user := url.QueryEscape(studentID)
	return []string{
		"/health",
		"/api/chat/history?user_id=" + user,
		"/api/homework/history?user_id=" + user,
		"/api/exam/history?user_id=" + user,
		"/api/learning/recommendations/" + url.PathEscape(studentID),
	}
}

func runDoctor(ctx context.Context, client *backend.Client, studentID string, out io.Writer) (passed, total int) {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(out, "Checking %s\n\n", client.BaseURL())

	for _, path := range doctorPaths(studentID) {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		result := client.Ping(pingCtx, path)
		cancel()

		total++
		switch {
		case result.OK():
			passed++
			fmt.Fprintf(out, "  PASS  %-52s %d (%s)\n", path, result.StatusCode, result.Latency.Round(time.Millisecond))
		case result.Err != nil:
			fmt.Fprintf(out, "  FAIL  %-52s %v\n", path, result.Err)
		default:
			fmt.Fprintf(out, "  WARN  %-52s %d\n", path, result.StatusCode)
		}
	}

	fmt.Fprintf(out, "\n%d/%d endpoints passed\n", passed, total)
	return passed, total
}
