package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"likesync/internal/config"
	"likesync/internal/domain"
)

// SummaryService gates summarization behind the daily quota.
type SummaryService struct {
	transcripts TranscriptFetcher
	summarizer  Summarizer
	quota       *QuotaTracker
	dailyLimit  int
	maxChars    int
	logger      *slog.Logger
}

func NewSummaryService(
	transcripts TranscriptFetcher,
	summarizer Summarizer,
	quota *QuotaTracker,
	logger *slog.Logger,
	quotaCfg config.QuotaConfig,
	summaryCfg config.SummaryConfig,
) *SummaryService {
	return &SummaryService{
		transcripts: transcripts,
		summarizer:  summarizer,
		quota:       quota,
		dailyLimit:  quotaCfg.DailyLimit,
		maxChars:    summaryCfg.MaxTranscriptChars,
		logger:      logger.With("component", "summary"),
	}
}

// Usage reports the identity's remaining quota without charging it.
func (s *SummaryService) Usage(ctx context.Context, identity string) (*domain.Eligibility, error) {
	return s.quota.CheckEligibility(ctx, identity, s.dailyLimit)
}

// Summarize produces a summary for videoURL. Quota is charged only after
// the summary was produced.
func (s *SummaryService) Summarize(ctx context.Context, identity, videoURL string) (*domain.SummaryResult, error) {
	if videoURL == "" {
		return nil, fmt.Errorf("%w: video url is required", domain.ErrInvalidArgument)
	}

	eligibility, err := s.quota.CheckEligibility(ctx, identity, s.dailyLimit)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !eligibility.CanProceed {
		return nil, fmt.Errorf("%w: limit %d", domain.ErrQuotaExceeded, s.dailyLimit)
	}

	transcript, err := s.transcripts.Fetch(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}

	length := utf8.RuneCountInString(transcript.Text)
	if s.maxChars > 0 && length > s.maxChars {
		return nil, fmt.Errorf("%w: %d characters, limit %d", domain.ErrTranscriptTooLong, length, s.maxChars)
	}

	summary, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	result := &domain.SummaryResult{
		Summary: summary,
		Metadata: map[string]string{
			"title":            transcript.Title,
			"channel":          transcript.Channel,
			"transcriptLength": strconv.Itoa(length),
		},
		Unlimited: eligibility.Unlimited,
		Remaining: -1,
	}

	if eligibility.Unlimited {
		return result, nil
	}

	count, err := s.quota.RecordUsage(ctx, identity)
	if err != nil {
		// The summary exists; losing one count is preferable to losing it.
		s.logger.Error("failed to record usage", "identity", identity, "error", err)
		result.Remaining = max(eligibility.Remaining-1, 0)
		return result, nil
	}
	result.Remaining = max(s.dailyLimit-count, 0)

	s.logger.Info("summary produced",
		"identity", identity,
		"transcript_length", length,
		"remaining", result.Remaining,
	)
	return result, nil
}

// IsClientError reports errors caused by the request rather than by a
// collaborator.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrQuotaExceeded) ||
		errors.Is(err, domain.ErrTranscriptTooLong)
}
