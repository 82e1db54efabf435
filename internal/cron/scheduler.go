package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"daanseva/internal/config"
	"daanseva/internal/gateway"
	"daanseva/internal/service"
)

// Scheduler runs the background reconciliation jobs.
type Scheduler struct {
	cron         *cron.Cron
	cfg          *config.Config
	logger       *zap.Logger
	transactions service.TransactionStore
	settlement   *service.Settlement
	gateway      gateway.Client
}

// New creates a new cron scheduler.
func New(
	cfg *config.Config,
	transactions service.TransactionStore,
	settlement *service.Settlement,
	gw gateway.Client,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		cfg:          cfg,
		logger:       logger,
		transactions: transactions,
		settlement:   settlement,
		gateway:      gw,
	}
}

// Start registers and starts all cron jobs. A registration error means a
// malformed schedule and is returned so the caller can refuse to boot.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	// Reconcile stale pending transactions - every 10 minutes
	if _, err := s.cron.AddFunc("0 */10 * * * *", func() {
		s.ReconcilePending()
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and returns a context that is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ReconcilePending sweeps transactions stuck in pending: a capture the
// webhook and verify paths both missed is settled through the normal
// processor, and transactions past the expiry window are failed. Exported
// so it can be driven directly in tests and one-off maintenance.
func (s *Scheduler) ReconcilePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.Recon.Cutoff)
	stale, err := s.transactions.FindStalePending(ctx, cutoff, 100)
	if err != nil {
		s.logger.Error("reconciliation: failed to list stale transactions", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	s.logger.Info("reconciling stale pending transactions", zap.Int("count", len(stale)))

	expiry := time.Now().Add(-s.cfg.Recon.Expiry)
	for _, tx := range stale {
		payments, err := s.gateway.FetchOrderPayments(ctx, tx.GatewayOrderID)
		if err != nil {
			s.logger.Warn("reconciliation: gateway lookup failed",
				zap.String("transaction_id", tx.ID),
				zap.String("gateway_order_id", tx.GatewayOrderID),
				zap.Error(err))
			continue
		}

		settled := false
		for _, p := range payments {
			if p.Status == gateway.PaymentStatusCaptured {
				if _, err := s.settlement.Settle(ctx, p); err != nil {
					s.logger.Error("reconciliation: settle failed",
						zap.String("transaction_id", tx.ID),
						zap.Error(err))
				}
				settled = true
				break
			}
		}
		if settled {
			continue
		}

		if tx.CreatedAt.Before(expiry) {
			if _, err := s.settlement.Fail(ctx, tx.GatewayOrderID, "expired"); err != nil {
				s.logger.Error("reconciliation: expire failed",
					zap.String("transaction_id", tx.ID),
					zap.Error(err))
			}
		}
	}
}
