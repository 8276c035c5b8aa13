package service

import (
	"context"
	"fmt"

	"kidbook/internal/models"
	"kidbook/internal/repository"
)

type ReportService struct {
	reportRepo *repository.ReportRepository
}

func NewReportService(reportRepo *repository.ReportRepository) *ReportService {
	return &ReportService{reportRepo: reportRepo}
}

func (s *ReportService) VenueReport(ctx context.Context, venueID int64) (*models.VenueReportResponse, error) {
	report, err := s.reportRepo.VenueReport(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to build venue report: %w", err)
	}
	return report, nil
}
