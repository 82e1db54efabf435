package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"daanseva/internal/gateway"
	"daanseva/internal/models"
	"daanseva/internal/repository"
)

func ptr(s string) *string { return &s }

// memTransactionStore mirrors the conditional-update discipline of the gorm
// repository: every transition guards on the current status under a lock, so
// concurrent settlement tests exercise the same winner/loser split the real
// database produces. When wired to a campaign store, MarkCompleted applies
// the aggregate credit with the same commit-or-nothing behavior as the real
// database transaction.
type memTransactionStore struct {
	mu        sync.Mutex
	txs       map[string]*models.Transaction
	campaigns *memCampaignStore
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{txs: make(map[string]*models.Transaction)}
}

func (s *memTransactionStore) put(tx *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.ID] = &cp
}

func (s *memTransactionStore) get(id string) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[id]; ok {
		cp := *tx
		return &cp
	}
	return nil
}

func (s *memTransactionStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.txs[tx.ID] = &cp
	return nil
}

func (s *memTransactionStore) FindByID(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *memTransactionStore) FindByGatewayOrderID(_ context.Context, orderID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.GatewayOrderID == orderID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memTransactionStore) FindByGatewayPaymentID(_ context.Context, paymentID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.GatewayPaymentID != nil && *tx.GatewayPaymentID == paymentID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memTransactionStore) MarkCompleted(_ context.Context, id, paymentID, method string, at time.Time, campaignID string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.Status != models.TxStatusPending {
		return false, nil
	}
	// Credit before flipping so a failed credit leaves the row pending,
	// matching the rollback of the real enclosing transaction.
	if campaignID != "" && s.campaigns != nil {
		if err := s.campaigns.credit(campaignID, amount); err != nil {
			return false, err
		}
	}
	tx.Status = models.TxStatusCompleted
	tx.PaymentStatus = models.TxStatusCompleted
	tx.GatewayPaymentID = ptr(paymentID)
	tx.Method = method
	tx.CompletedAt = &at
	return true, nil
}

func (s *memTransactionStore) MarkFailed(_ context.Context, id, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.Status != models.TxStatusPending {
		return false, nil
	}
	tx.Status = models.TxStatusFailed
	tx.PaymentStatus = models.TxStatusFailed
	tx.FailureReason = reason
	tx.FailedAt = &at
	return true, nil
}

func (s *memTransactionStore) MarkRefunded(_ context.Context, id, refundID string, amount int64, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.Status != models.TxStatusCompleted {
		return false, nil
	}
	tx.Status = models.TxStatusRefunded
	tx.PaymentStatus = models.TxStatusRefunded
	tx.RefundID = refundID
	tx.RefundAmount = amount
	tx.RefundReason = reason
	tx.RefundedAt = &at
	return true, nil
}

func (s *memTransactionStore) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.Status == models.TxStatusPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, *tx)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// memCampaignStore applies settlement deltas atomically under a lock,
// matching the gorm.Expr increments of the real repository. creditFailures
// makes the next N credits fail, for exercising the settlement rollback.
type memCampaignStore struct {
	mu             sync.Mutex
	campaigns      map[string]*models.Campaign
	creditFailures int
}

func newMemCampaignStore() *memCampaignStore {
	return &memCampaignStore{campaigns: make(map[string]*models.Campaign)}
}

func (s *memCampaignStore) put(c *models.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.campaigns[c.ID] = &cp
}

func (s *memCampaignStore) get(id string) *models.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (s *memCampaignStore) FindByID(_ context.Context, id string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCampaignStore) credit(id string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creditFailures > 0 {
		s.creditFailures--
		return errors.New("aggregate update failed")
	}
	c, ok := s.campaigns[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.RaisedAmount += amount
	c.DonorCount++
	return nil
}

type memProductStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newMemProductStore() *memProductStore {
	return &memProductStore{products: make(map[string]*models.Product)}
}

func (s *memProductStore) put(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

func (s *memProductStore) get(id string) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (s *memProductStore) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProductStore) DecrementStock(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock <= 0 {
		return false, nil
	}
	p.Stock--
	return true, nil
}

// fakeGateway scripts gateway responses per test.
type fakeGateway struct {
	mu sync.Mutex

	createOrderErr  error
	createdOrders   int
	createRefundErr error
	createdRefunds  int

	payments      map[string]*gateway.Payment
	orderPayments map[string][]gateway.Payment
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:      make(map[string]*gateway.Payment),
		orderPayments: make(map[string][]gateway.Payment),
	}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createOrderErr != nil {
		return nil, g.createOrderErr
	}
	g.createdOrders++
	return &gateway.Order{
		ID:       "order_fake_" + receipt,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &gateway.Error{Op: "payments.fetch", Status: 404}
	}
	cp := *p
	return &cp, nil
}

func (g *fakeGateway) FetchOrderPayments(_ context.Context, orderID string) ([]gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.Payment(nil), g.orderPayments[orderID]...), nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, paymentID string, amount int64, _ map[string]string) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createRefundErr != nil {
		return nil, g.createRefundErr
	}
	g.createdRefunds++
	return &gateway.Refund{
		ID:        "rfnd_fake_1",
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}, nil
}

func (g *fakeGateway) FetchRefund(_ context.Context, refundID string) (*gateway.Refund, error) {
	return &gateway.Refund{ID: refundID, Status: "processed"}, nil
}

// fakeReceiptSender records receipts; Wait lets tests observe the async send.
type fakeReceiptSender struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
}

func newFakeReceiptSender() *fakeReceiptSender {
	return &fakeReceiptSender{ch: make(chan string, 16)}
}

func (f *fakeReceiptSender) SendReceipt(_ context.Context, tx *models.Transaction) error {
	f.mu.Lock()
	f.sent = append(f.sent, tx.ID)
	f.mu.Unlock()
	f.ch <- tx.ID
	return nil
}

func (f *fakeReceiptSender) wait(timeout time.Duration) (string, bool) {
	select {
	case id := <-f.ch:
		return id, true
	case <-time.After(timeout):
		return "", false
	}
}

func (f *fakeReceiptSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeStatsStore returns canned breakdowns for the report assembly tests.
type fakeStatsStore struct {
	summary   *repository.StatsSummary
	methods   []repository.MethodBucket
	anonymity []repository.AnonymityBucket
	daily     []repository.DayBucket
	refunds   *repository.RefundSummary

	// grossSummary is returned when IncludeRefunded is forced on.
	grossSummary *repository.StatsSummary
}

func (f *fakeStatsStore) Summary(_ context.Context, filter repository.StatsFilter) (*repository.StatsSummary, error) {
	if filter.IncludeRefunded && f.grossSummary != nil {
		return f.grossSummary, nil
	}
	return f.summary, nil
}

func (f *fakeStatsStore) MethodBreakdown(_ context.Context, _ repository.StatsFilter) ([]repository.MethodBucket, error) {
	return f.methods, nil
}

func (f *fakeStatsStore) AnonymityBreakdown(_ context.Context, _ repository.StatsFilter) ([]repository.AnonymityBucket, error) {
	return f.anonymity, nil
}

func (f *fakeStatsStore) DailySeries(_ context.Context, _ repository.StatsFilter, _ int) ([]repository.DayBucket, error) {
	return f.daily, nil
}

func (f *fakeStatsStore) Refunds(_ context.Context, _ repository.StatsFilter) (*repository.RefundSummary, error) {
	return f.refunds, nil
}
