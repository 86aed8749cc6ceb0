package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/tripchat/backend/internal/domain"
	"github.com/pkordes/tripchat/backend/internal/repo"
)

// MandatoryChecker reports whether an activity is protected from conversational
// changes. The mutation package's policies satisfy it.
type MandatoryChecker interface {
	IsMandatory(a domain.Activity) bool
}

// ExportService assembles a flat per-activity export of one trip.
type ExportService struct {
	trips     repo.TripRepo
	days      repo.DayRepo
	mandatory MandatoryChecker
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(trips repo.TripRepo, days repo.DayRepo, mandatory MandatoryChecker) *ExportService {
	return &ExportService{trips: trips, days: days, mandatory: mandatory}
}

// Export returns one ExportRow per activity of the trip, in day then time order.
// Days with no activities contribute one row with empty activity fields.
func (s *ExportService) Export(ctx context.Context, tripID uuid.UUID) ([]domain.ExportRow, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	days, err := s.days.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: days: %w", err)
	}
	domain.SortDays(days)

	base := domain.ExportRow{
		TripID:      trip.ID.String(),
		Destination: trip.Destination,
		StartDate:   trip.StartDate.Format("2006-01-02"),
		EndDate:     trip.EndDate.Format("2006-01-02"),
	}

	rows := []domain.ExportRow{}
	for _, d := range days {
		row := base
		row.DayNumber = d.DayNumber
		row.Date = d.Date
		if len(d.Activities) == 0 {
			rows = append(rows, row)
			continue
		}
		for _, a := range d.Activities {
			r := row
			r.Time = a.Time
			r.Title = a.Title
			r.Category = domain.NormalizeCategory(a.Category)
			r.Location = a.Location.Name
			r.Price = a.PriceEstimate
			if s.mandatory != nil {
				r.Mandatory = s.mandatory.IsMandatory(a)
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}
