package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"likesync/internal/domain"
)

const defaultTranscriptTimeout = 60 * time.Second

// TranscriptCommand fetches transcripts by running an external helper with
// the video URL as its only argument. The helper prints a JSON object with
// title, channel and transcript fields on stdout.
type TranscriptCommand struct {
	// Path is the helper executable.
	Path string

	// Args are passed before the video URL.
	Args []string

	// Timeout bounds one invocation.
	Timeout time.Duration

	logger *slog.Logger
}

func NewTranscriptCommand(path string, timeout time.Duration, logger *slog.Logger) *TranscriptCommand {
	fields := strings.Fields(path)
	cmd := &TranscriptCommand{
		Timeout: timeout,
		logger:  logger.With("component", "transcript"),
	}
	if len(fields) > 0 {
		cmd.Path = fields[0]
		cmd.Args = fields[1:]
	}
	return cmd
}

type helperOutput struct {
	Title      string `json:"title"`
	Channel    string `json:"channel"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

func (t *TranscriptCommand) Fetch(ctx context.Context, videoURL string) (*domain.Transcript, error) {
	if t.Path == "" {
		return nil, errors.New("transcript command not configured")
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultTranscriptTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, t.Args...), videoURL)
	cmd := exec.CommandContext(cmdCtx, t.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	startTime := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("transcript helper timed out after %s", timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("transcript helper failed",
			"url", videoURL,
			"error", err,
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return nil, fmt.Errorf("transcript helper failed: %w", err)
	}

	var out helperOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: transcript helper output: %w", domain.ErrMalformedResponse, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("transcript helper: %s", out.Error)
	}
	if strings.TrimSpace(out.Transcript) == "" {
		return nil, fmt.Errorf("%w: no transcript available for %s", domain.ErrNotFound, videoURL)
	}

	t.logger.Debug("fetched transcript",
		"url", videoURL,
		"length", len(out.Transcript),
		"duration", time.Since(startTime),
	)

	return &domain.Transcript{
		VideoURL: videoURL,
		Title:    out.Title,
		Channel:  out.Channel,
		Text:     out.Transcript,
	}, nil
}
