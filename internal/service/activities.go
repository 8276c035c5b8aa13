package service

import (
	"context"
	"fmt"

	apperrors "kidbook/internal/errors"
	"kidbook/internal/logger"
	"kidbook/internal/models"
	"kidbook/internal/repository"
	"kidbook/internal/search"
)

type ActivityService struct {
	activityRepo *repository.ActivityRepository
	esClient     *search.ElasticsearchClient
}

func NewActivityService(activityRepo *repository.ActivityRepository, esClient *search.ElasticsearchClient) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		esClient:     esClient,
	}
}

func (s *ActivityService) Create(ctx context.Context, req *models.CreateActivityRequest) (*models.CreateActivityResponse, error) {
	venue, err := s.activityRepo.GetVenueByID(ctx, req.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue == nil {
		return nil, apperrors.ErrNotFound
	}

	activity := &models.Activity{
		VenueID:         req.VenueID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		AgeMin:          req.AgeMin,
		AgeMax:          req.AgeMax,
		CreditsPerChild: req.CreditsPerChild,
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	s.indexActivity(ctx, activity)

	return &models.CreateActivityResponse{ID: activity.ID}, nil
}

func (s *ActivityService) Update(ctx context.Context, activity *models.Activity) error {
	if err := s.activityRepo.Update(ctx, activity); err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	s.indexActivity(ctx, activity)
	return nil
}

func (s *ActivityService) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if activity == nil {
		return nil, apperrors.ErrNotFound
	}
	return activity, nil
}

// List searches the catalog. Elasticsearch serves the query when available,
// Postgres full-text search is the fallback.
func (s *ActivityService) List(ctx context.Context, query, category string, page, pageSize int) (models.ListActivitiesResponse, error) {
	var activities []models.Activity
	var err error

	if s.esClient != nil {
		activities, err = s.esClient.Search(ctx, query, category, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Error("Elasticsearch query failed, falling back to Postgres",
				"error", err,
				"query", query)
			activities = nil
		}
	}

	if activities == nil {
		activities, err = s.activityRepo.List(ctx, query, category, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list activities: %w", err)
		}
	}

	result := make(models.ListActivitiesResponse, len(activities))
	for i, activity := range activities {
		result[i] = models.ListActivitiesResponseItem{
			ID:              activity.ID,
			VenueID:         activity.VenueID,
			Title:           activity.Title,
			Category:        activity.Category,
			AgeMin:          activity.AgeMin,
			AgeMax:          activity.AgeMax,
			CreditsPerChild: activity.CreditsPerChild,
		}
	}

	return result, nil
}

// Reindex pushes the whole catalog from Postgres into Elasticsearch. Used by
// the reindex command after index loss or mapping changes.
func (s *ActivityService) Reindex(ctx context.Context) (int, error) {
	if s.esClient == nil {
		return 0, fmt.Errorf("elasticsearch client is not configured")
	}

	activities, err := s.activityRepo.List(ctx, "", "", 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load activities: %w", err)
	}

	indexed := 0
	for i := range activities {
		if err := s.esClient.IndexActivity(ctx, &activities[i]); err != nil {
			logger.WithContext(ctx).Error("Failed to index activity",
				"error", err,
				"activity_id", activities[i].ID)
			continue
		}
		indexed++
	}

	return indexed, nil
}

func (s *ActivityService) CreateVenue(ctx context.Context, venue *models.Venue) error {
	return s.activityRepo.CreateVenue(ctx, venue)
}

func (s *ActivityService) GetVenue(ctx context.Context, id int64) (*models.Venue, error) {
	venue, err := s.activityRepo.GetVenueByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue == nil {
		return nil, apperrors.ErrNotFound
	}
	return venue, nil
}

func (s *ActivityService) indexActivity(ctx context.Context, activity *models.Activity) {
	if s.esClient == nil {
		return
	}
	if err := s.esClient.IndexActivity(ctx, activity); err != nil {
		// Log error but don't fail the operation, reindex will catch up
		logger.WithContext(ctx).Error("Failed to index activity",
			"error", err,
			"activity_id", activity.ID)
	}
}
