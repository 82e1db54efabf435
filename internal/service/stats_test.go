package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daanseva/internal/repository"
	"daanseva/internal/service"
)

func TestReportComputesGrossAndNetTotals(t *testing.T) {
	store := &fakeStatsStore{
		summary: &repository.StatsSummary{Count: 8, Total: 80000, Avg: 10000, Min: 500, Max: 40000},
		// Gross scope includes the two refunded rows.
		grossSummary: &repository.StatsSummary{Count: 10, Total: 100000},
		methods: []repository.MethodBucket{
			{Method: "upi", Count: 6, Total: 60000},
			{Method: "card", Count: 4, Total: 40000},
		},
		anonymity: []repository.AnonymityBucket{
			{Anonymous: false, Count: 7, Total: 70000},
			{Anonymous: true, Count: 3, Total: 30000},
		},
		daily: []repository.DayBucket{
			{Day: "2026-08-29", Count: 2, Total: 15000},
			{Day: "2026-08-30", Count: 3, Total: 25000},
		},
		refunds: &repository.RefundSummary{Count: 2, RefundedAmount: 20000},
	}

	svc := service.NewStats(store)

	report, err := svc.Report(context.Background(), repository.StatsFilter{}, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(100000), report.GrossTotal)
	assert.Equal(t, int64(80000), report.NetTotal)
	assert.Equal(t, int64(8), report.Summary.Count)
	assert.Len(t, report.Methods, 2)
	assert.Len(t, report.Anonymity, 2)
	assert.Len(t, report.Daily, 2)
	assert.Equal(t, int64(2), report.Refunds.Count)
}

func TestReportWithNoRefundsNetEqualsGross(t *testing.T) {
	store := &fakeStatsStore{
		summary:      &repository.StatsSummary{Count: 3, Total: 4500},
		grossSummary: &repository.StatsSummary{Count: 3, Total: 4500},
		refunds:      &repository.RefundSummary{},
	}

	report, err := service.NewStats(store).Report(context.Background(), repository.StatsFilter{}, 30)
	require.NoError(t, err)
	assert.Equal(t, report.GrossTotal, report.NetTotal)
}
