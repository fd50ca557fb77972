package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"likesync/internal/config"
	"likesync/internal/domain"
	"likesync/internal/service/mocks"
	"likesync/internal/storage/memory"
)

const videoURL = "https://www.youtube.com/watch?v=abc"

type SummaryServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	ctrl        *gomock.Controller
	transcripts *mocks.MockTranscriptFetcher
	summarizer  *mocks.MockSummarizer
	usage       *memory.UsageStore
	service     *SummaryService
}

func (s *SummaryServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.transcripts = mocks.NewMockTranscriptFetcher(s.ctrl)
	s.summarizer = mocks.NewMockSummarizer(s.ctrl)
	s.usage = memory.NewUsageStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	quota := NewQuotaTracker(s.usage, time.UTC, logger)
	s.service = NewSummaryService(s.transcripts, s.summarizer, quota, logger,
		config.QuotaConfig{DailyLimit: 2},
		config.SummaryConfig{MaxTranscriptChars: 20},
	)
}

func (s *SummaryServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSummaryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SummaryServiceTestSuite))
}

func (s *SummaryServiceTestSuite) count() int {
	record, err := s.usage.Get(s.ctx, identity)
	s.Require().NoError(err)
	if record == nil {
		return 0
	}
	return record.DailyCount
}

func (s *SummaryServiceTestSuite) TestSummarize_ChargesAfterSuccess() {
	transcript := &domain.Transcript{Title: "Talk", Channel: "Chan", Text: "short text"}
	s.transcripts.EXPECT().Fetch(gomock.Any(), videoURL).Return(transcript, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), transcript).Return("summary", nil)

	result, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.Require().NoError(err)
	s.Equal("summary", result.Summary)
	s.Equal(1, result.Remaining)
	s.Equal("Talk", result.Metadata["title"])
	s.Equal("Chan", result.Metadata["channel"])
	s.Equal("10", result.Metadata["transcriptLength"])
	s.Equal(1, s.count())
}

func (s *SummaryServiceTestSuite) TestSummarize_FailureNotCharged() {
	s.transcripts.EXPECT().Fetch(gomock.Any(), videoURL).Return(&domain.Transcript{Text: "ok"}, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), gomock.Any()).Return("", domain.ErrRemoteUnavailable)

	_, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.ErrorIs(err, domain.ErrRemoteUnavailable)
	s.Zero(s.count())
}

func (s *SummaryServiceTestSuite) TestSummarize_TranscriptFailureNotCharged() {
	s.transcripts.EXPECT().Fetch(gomock.Any(), videoURL).Return(nil, errors.New("helper exited 1"))

	_, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.Error(err)
	s.False(IsClientError(err))
	s.Zero(s.count())
}

func (s *SummaryServiceTestSuite) TestSummarize_TooLong() {
	s.transcripts.EXPECT().Fetch(gomock.Any(), videoURL).
		Return(&domain.Transcript{Text: strings.Repeat("é", 21)}, nil)

	_, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.ErrorIs(err, domain.ErrTranscriptTooLong)
	s.True(IsClientError(err))
	s.Zero(s.count())
}

func (s *SummaryServiceTestSuite) TestSummarize_QuotaExceeded() {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	s.Require().NoError(s.usage.Save(s.ctx, &domain.UsageRecord{
		Identity:        identity,
		DailyCount:      2,
		LastCountedDate: &day,
	}))

	_, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.ErrorIs(err, domain.ErrQuotaExceeded)
	s.True(IsClientError(err))
}

func (s *SummaryServiceTestSuite) TestSummarize_UnlimitedNotCharged() {
	s.Require().NoError(s.usage.Save(s.ctx, &domain.UsageRecord{
		Identity:        identity,
		IsUnlimitedTier: true,
	}))
	s.transcripts.EXPECT().Fetch(gomock.Any(), videoURL).Return(&domain.Transcript{Text: "ok"}, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), gomock.Any()).Return("summary", nil)

	result, err := s.service.Summarize(s.ctx, identity, videoURL)
	s.Require().NoError(err)
	s.True(result.Unlimited)
	s.Equal(-1, result.Remaining)
	s.Zero(s.count())
}

func (s *SummaryServiceTestSuite) TestSummarize_EmptyURL() {
	_, err := s.service.Summarize(s.ctx, identity, "")
	s.ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *SummaryServiceTestSuite) TestUsage() {
	e, err := s.service.Usage(s.ctx, identity)
	s.Require().NoError(err)
	s.Equal(2, e.Remaining)
	s.True(e.CanProceed)
}
