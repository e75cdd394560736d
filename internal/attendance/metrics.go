package attendance

import (
	"fmt"
	"time"
)

// DashboardMetrics summarizes one day of attendance against the roster.
type DashboardMetrics struct {
	TotalStudents  int     `json:"total_students"`
	PresentToday   int     `json:"present_today"`
	AbsentToday    int     `json:"absent_today"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Metrics computes the dashboard numbers for the given day. Present and
// absent always sum to the roster size.
func (s *Service) Metrics(day time.Time) (*DashboardMetrics, error) {
	total, err := s.students.Count()
	if err != nil {
		return nil, fmt.Errorf("counting roster: %w", err)
	}

	present, err := s.ledger.CountOn(day)
	if err != nil {
		return nil, fmt.Errorf("counting attendance: %w", err)
	}

	rate := 0.0
	if total > 0 {
		rate = float64(present) / float64(total) * 100
	}

	return &DashboardMetrics{
		TotalStudents:  total,
		PresentToday:   present,
		AbsentToday:    total - present,
		AttendanceRate: rate,
	}, nil
}

// TrendPoint is one day of the weekly trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeeklyTrend returns per-day attendance counts for the trailing seven
// days ending at the given day, oldest first. Days without a ledger file
// count zero.
func (s *Service) WeeklyTrend(day time.Time) ([]TrendPoint, error) {
	points := make([]TrendPoint, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		d := day.AddDate(0, 0, -offset)
		count, err := s.ledger.CountOn(d)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", d.Format("2006-01-02"), err)
		}
		points = append(points, TrendPoint{Date: d.Format("2006-01-02"), Count: count})
	}
	return points, nil
}
