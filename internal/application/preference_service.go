package application

import (
	"context"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/pkg/apperr"
)

// PreferenceService exposes the per-user recently, group and favorite sets.
type PreferenceService struct {
	Repo    repository.PreferenceRepository
	Metrics *metrics.Collector
}

func (s *PreferenceService) NewRecently(ctx context.Context, userID int64, items []entity.Recently) (int, error) {
	if len(items) == 0 {
		return 0, apperr.Parse("recently is empty")
	}
	n, err := s.Repo.NewRecently(ctx, userID, items)
	s.Metrics.RecordBulkRows("recently", n)
	return n, err
}

func (s *PreferenceService) ModifyRecently(ctx context.Context, userID int64, item entity.Recently) error {
	return s.Repo.ModifyRecently(ctx, userID, item)
}

func (s *PreferenceService) ClearRecently(ctx context.Context, userID int64) error {
	return s.Repo.ClearRecently(ctx, userID)
}

func (s *PreferenceService) Recently(ctx context.Context, userID int64) ([]entity.Recently, error) {
	return s.Repo.QueryRecently(ctx, userID)
}

func (s *PreferenceService) NewGroups(ctx context.Context, userID int64, groups []entity.FavGroup) (int, error) {
	if len(groups) == 0 {
		return 0, apperr.Parse("groups is empty")
	}
	n, err := s.Repo.NewGroups(ctx, userID, groups)
	s.Metrics.RecordBulkRows("groups", n)
	return n, err
}

func (s *PreferenceService) ModifyGroup(ctx context.Context, userID int64, oldName string, group entity.FavGroup) error {
	if oldName == "" || group.Name == "" {
		return apperr.Parse("old_name and name are required")
	}
	return s.Repo.ModifyGroup(ctx, userID, oldName, group)
}

func (s *PreferenceService) DeleteGroups(ctx context.Context, userID int64, names []string) error {
	return s.Repo.DeleteGroups(ctx, userID, names)
}

func (s *PreferenceService) Groups(ctx context.Context, userID int64, name string) ([]entity.FavGroup, error) {
	return s.Repo.QueryGroups(ctx, userID, name)
}

func (s *PreferenceService) NewFavorites(ctx context.Context, userID int64, items []entity.StationGroup) (int, error) {
	if len(items) == 0 {
		return 0, apperr.Parse("favorites is empty")
	}
	n, err := s.Repo.NewFavorite(ctx, userID, items)
	s.Metrics.RecordBulkRows("favorites", n)
	return n, err
}

func (s *PreferenceService) DeleteFavorites(ctx context.Context, userID int64, stations, groupNames []string) error {
	return s.Repo.DeleteFavorite(ctx, userID, stations, groupNames)
}

func (s *PreferenceService) ModifyFavorite(ctx context.Context, userID int64, station string, groupNames []string) error {
	if station == "" {
		return apperr.Parse("stationuuid is required")
	}
	return s.Repo.ModifyFavorite(ctx, userID, station, groupNames)
}

func (s *PreferenceService) Favorites(ctx context.Context, userID int64) ([]entity.StationGroup, error) {
	return s.Repo.QueryFavorites(ctx, userID)
}

// Sync returns every record created after since. 0 returns everything.
func (s *PreferenceService) Sync(ctx context.Context, userID, since int64) (*entity.SyncSet, error) {
	if since < 0 {
		return nil, apperr.Parse("since must not be negative")
	}
	return s.Repo.QuerySync(ctx, userID, since)
}
