package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/document"
)

// runPublish validates each file locally, then submits the conforming ones
// to the quizdoc API. Files that fail validation or submission are reported
// and counted; the remaining files still go through, matching the per-file
// error handling of the CI sync job.
func runPublish(files []string) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	apiURL := os.Getenv("QUIZDOC_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	token := os.Getenv("QUIZDOC_TOKEN")
	if token == "" {
		logger.Error().Msg("QUIZDOC_TOKEN is required for publish")
		return 2
	}

	client := &http.Client{Timeout: 30 * time.Second}
	failures := 0

	for _, path := range files {
		if err := publishFile(client, apiURL, token, path); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("publish failed")
			failures++
			continue
		}
		logger.Info().Str("file", path).Msg("submitted for publishing")
	}

	if failures > 0 {
		logger.Warn().Int("failed", failures).Int("total", len(files)).Msg("some files were not published")
		return 1
	}
	return 0
}

func publishFile(client *http.Client, apiURL, token, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	_, res, err := document.Parse(raw)
	if err != nil {
		return err
	}
	if !res.Valid() {
		return fmt.Errorf("schema violations: %s", violationSummary(res))
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+"/v1/documents", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("api returned %d (%s: %s)", resp.StatusCode, apiErr.Error, apiErr.Message)
	}
	return nil
}

func violationSummary(res document.Result) string {
	buf := &bytes.Buffer{}
	for i, v := range res.Violations {
		if i > 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(buf, "%s: %s", v.Path, v.Message)
	}
	return buf.String()
}
