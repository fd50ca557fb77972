package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"likesync/internal/config"
	"likesync/internal/domain"
	"likesync/internal/service/mocks"
	"likesync/internal/storage/memory"
)

type ExportServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	ctrl        *gomock.Controller
	lister      *mocks.MockCollectionLister
	publisher   *mocks.MockPublisher
	credentials *mocks.MockCredentialProvider
	cache       *memory.Cache
	sync        *SyncService
	logger      *slog.Logger
}

func (s *ExportServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.lister = mocks.NewMockCollectionLister(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.credentials = mocks.NewMockCredentialProvider(s.ctrl)
	s.cache = memory.NewCache()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sync = NewSyncService(s.lister, s.cache, identity, s.logger, config.SyncConfig{})
}

func (s *ExportServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestExportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExportServiceTestSuite))
}

func (s *ExportServiceTestSuite) TestSync_PublishesDrain() {
	s.lister.EXPECT().ListPage(gomock.Any(), "").Return(&domain.Page{
		Items: items("a", "b"), TotalCount: 2,
	}, nil)
	s.publisher.EXPECT().PublishExport(gomock.Any(), identity, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, result *domain.DrainResult) error {
			s.Len(result.Items, 2)
			return nil
		})

	stats, err := NewExportService(s.sync, s.publisher, s.logger).Sync(s.ctx)
	s.Require().NoError(err)
	s.Equal(identity, stats.Identity)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.Pages)
	s.True(stats.Published)
}

func (s *ExportServiceTestSuite) TestSync_WithoutPublisher() {
	s.lister.EXPECT().ListPage(gomock.Any(), "").Return(&domain.Page{Items: items("a")}, nil)

	stats, err := NewExportService(s.sync, nil, s.logger).Sync(s.ctx)
	s.Require().NoError(err)
	s.False(stats.Published)
}

func (s *ExportServiceTestSuite) TestSync_PublishFailure() {
	s.lister.EXPECT().ListPage(gomock.Any(), "").Return(&domain.Page{Items: items("a")}, nil)
	s.publisher.EXPECT().PublishExport(gomock.Any(), identity, gomock.Any()).Return(errors.New("channel closed"))

	stats, err := NewExportService(s.sync, s.publisher, s.logger).Sync(s.ctx)
	s.Error(err)
	s.Require().NotNil(stats)
	s.False(stats.Published)
	s.Equal(1, stats.Fetched)
}

func (s *ExportServiceTestSuite) TestSync_DrainFailure() {
	s.lister.EXPECT().ListPage(gomock.Any(), "").Return(nil, domain.ErrAuthRequired)

	stats, err := NewExportService(s.sync, s.publisher, s.logger).Sync(s.ctx)
	s.ErrorIs(err, domain.ErrAuthRequired)
	s.Nil(stats)
}

func (s *ExportServiceTestSuite) TestRemoveItems_PublishesOnlyWhenSomethingRemoved() {
	s.lister.EXPECT().RemoveItem(gomock.Any(), "a").Return(domain.ErrPermissionDenied)

	report, err := NewExportService(s.sync, s.publisher, s.logger).RemoveItems(s.ctx, []string{"a"})
	s.Require().NoError(err)
	s.Empty(report.Succeeded)

	s.lister.EXPECT().RemoveItem(gomock.Any(), "b").Return(nil)
	s.publisher.EXPECT().PublishRemoval(gomock.Any(), identity, gomock.Any()).Return(errors.New("ignored"))

	report, err = NewExportService(s.sync, s.publisher, s.logger).RemoveItems(s.ctx, []string{"b"})
	s.Require().NoError(err)
	s.Equal([]string{"b"}, report.Succeeded)
}

func (s *ExportServiceTestSuite) TestSignOut_RevokesAndResets() {
	s.Require().NoError(s.cache.Set(s.ctx, map[string][]byte{identity + "/items": []byte(`[{"id":"a"}]`)}))
	s.credentials.EXPECT().Revoke(gomock.Any()).Return(nil)

	err := NewSessionService(s.credentials, s.sync, s.logger).SignOut(s.ctx)
	s.Require().NoError(err)

	snap, err := s.sync.Snapshot(s.ctx)
	s.Require().NoError(err)
	s.Empty(snap.Items)
}

func (s *ExportServiceTestSuite) TestSignOut_RevokeFailureStillResets() {
	s.Require().NoError(s.cache.Set(s.ctx, map[string][]byte{identity + "/items": []byte(`[{"id":"a"}]`)}))
	s.credentials.EXPECT().Revoke(gomock.Any()).Return(domain.ErrRemoteUnavailable)

	err := NewSessionService(s.credentials, s.sync, s.logger).SignOut(s.ctx)
	s.ErrorIs(err, domain.ErrRemoteUnavailable)

	snap, err := s.sync.Snapshot(s.ctx)
	s.Require().NoError(err)
	s.Empty(snap.Items)
}
