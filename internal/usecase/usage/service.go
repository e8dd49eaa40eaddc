package usage

import (
	"context"
	"time"
)

// PeriodUsage is token consumption against one budget window.
type PeriodUsage struct {
	Limit     int64
	Used      int64
	Remaining int64
	Exhausted bool
	ResetsAt  time.Time
}

// Report is the usage snapshot served by GET /usage.
type Report struct {
	Daily   PeriodUsage
	Monthly PeriodUsage
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// Report builds the current usage snapshot. A zero limit means unlimited.
func (s *Service) Report(_ context.Context) Report {
	now := time.Now().UTC()
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	monthEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	r := Report{
		Daily:   PeriodUsage{ResetsAt: dayEnd},
		Monthly: PeriodUsage{ResetsAt: monthEnd},
	}
	if s.br == nil {
		return r
	}

	r.Daily.Limit = s.br.DailyLimit()
	r.Daily.Used = s.br.DailyUsed()
	r.Daily.Remaining = s.br.RemainingDaily()
	r.Daily.Exhausted = r.Daily.Limit > 0 && r.Daily.Remaining <= 0

	r.Monthly.Limit = s.br.MonthlyLimit()
	r.Monthly.Used = s.br.MonthlyUsed()
	r.Monthly.Remaining = s.br.RemainingMonthly()
	r.Monthly.Exhausted = r.Monthly.Limit > 0 && r.Monthly.Remaining <= 0

	return r
}
