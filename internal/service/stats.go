package service

import (
	"context"
	"fmt"

	"daanseva/internal/repository"
)

// StatsReport bundles the reporting views over settled transactions.
// GrossTotal matches the published campaign aggregates (refunded rows
// included, since refunds never decrement published totals); NetTotal
// subtracts refunded amounts.
type StatsReport struct {
	Summary    *repository.StatsSummary     `json:"summary"`
	Methods    []repository.MethodBucket    `json:"methods"`
	Anonymity  []repository.AnonymityBucket `json:"anonymity"`
	Daily      []repository.DayBucket       `json:"daily"`
	Refunds    *repository.RefundSummary    `json:"refunds"`
	GrossTotal int64                        `json:"gross_total"`
	NetTotal   int64                        `json:"net_total"`
}

// Stats is the read-only reporting layer. It never mutates transaction or
// campaign state.
type Stats struct {
	store StatsStore
}

func NewStats(store StatsStore) *Stats {
	return &Stats{store: store}
}

// Report computes the full reporting view for a filter. The caller's
// IncludeRefunded choice governs Summary and the breakdowns; gross and net
// totals are always computed over the refund-inclusive scope.
func (s *Stats) Report(ctx context.Context, f repository.StatsFilter, days int) (*StatsReport, error) {
	summary, err := s.store.Summary(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats report: summary: %w", err)
	}

	methods, err := s.store.MethodBreakdown(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats report: methods: %w", err)
	}

	anonymity, err := s.store.AnonymityBreakdown(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats report: anonymity: %w", err)
	}

	daily, err := s.store.DailySeries(ctx, f, days)
	if err != nil {
		return nil, fmt.Errorf("stats report: daily: %w", err)
	}

	refunds, err := s.store.Refunds(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats report: refunds: %w", err)
	}

	grossFilter := f
	grossFilter.IncludeRefunded = true
	gross, err := s.store.Summary(ctx, grossFilter)
	if err != nil {
		return nil, fmt.Errorf("stats report: gross: %w", err)
	}

	return &StatsReport{
		Summary:    summary,
		Methods:    methods,
		Anonymity:  anonymity,
		Daily:      daily,
		Refunds:    refunds,
		GrossTotal: gross.Total,
		NetTotal:   gross.Total - refunds.RefundedAmount,
	}, nil
}
