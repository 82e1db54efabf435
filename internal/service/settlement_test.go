package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"daanseva/internal/gateway"
	"daanseva/internal/models"
	"daanseva/internal/service"
	"daanseva/internal/signature"
)

func newTestSettlement(
	txs *memTransactionStore,
	campaigns *memCampaignStore,
	products *memProductStore,
	gw *fakeGateway,
	receipts *fakeReceiptSender,
) *service.Settlement {
	txs.campaigns = campaigns
	verifier := signature.NewVerifier("callback-secret", "webhook-secret")
	return service.NewSettlement(txs, products, gw, verifier, receipts, zap.NewNop())
}

func pendingDonation(id, orderID, campaignID string, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:             id,
		Kind:           models.TxKindDonation,
		CampaignID:     campaignID,
		DonorEmail:     "donor@example.com",
		Amount:         amount,
		Currency:       "INR",
		Status:         models.TxStatusPending,
		PaymentStatus:  models.TxStatusPending,
		GatewayOrderID: orderID,
		CreatedAt:      time.Now().Add(-time.Minute),
	}
}

func TestSettleCompletesPendingTransaction(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	products := newMemProductStore()
	receipts := newFakeReceiptSender()
	svc := newTestSettlement(txs, campaigns, products, newFakeGateway(), receipts)

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive, Currency: "INR"})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 50000))

	result, err := svc.Settle(context.Background(), gateway.Payment{
		ID:      "pay_1",
		OrderID: "order_1",
		Method:  "upi",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.AlreadyProcessed)

	stored := txs.get("tx_1")
	require.NotNil(t, stored)
	assert.Equal(t, models.TxStatusCompleted, stored.Status)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay_1", *stored.GatewayPaymentID)
	assert.Equal(t, "upi", stored.Method)
	require.NotNil(t, stored.CompletedAt)

	camp := campaigns.get("camp_1")
	assert.Equal(t, int64(50000), camp.RaisedAmount)
	assert.Equal(t, int64(1), camp.DonorCount)

	id, ok := receipts.wait(2 * time.Second)
	require.True(t, ok, "receipt was never sent")
	assert.Equal(t, "tx_1", id)
}

func TestSettleIsIdempotentAcrossRetries(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	receipts := newFakeReceiptSender()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), newFakeGateway(), receipts)

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 10000))

	payment := gateway.Payment{ID: "pay_1", OrderID: "order_1", Method: "card"}

	first, err := svc.Settle(context.Background(), payment)
	require.NoError(t, err)
	assert.False(t, first.AlreadyProcessed)

	second, err := svc.Settle(context.Background(), payment)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, models.TxStatusCompleted, second.Transaction.Status)

	// The aggregate moved exactly once.
	camp := campaigns.get("camp_1")
	assert.Equal(t, int64(10000), camp.RaisedAmount)
	assert.Equal(t, int64(1), camp.DonorCount)
}

func TestSettleConcurrentCallersProduceOneWinner(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	receipts := newFakeReceiptSender()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), newFakeGateway(), receipts)

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 25000))

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*service.SettlementResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Settle(context.Background(), gateway.Payment{
				ID:      "pay_1",
				OrderID: "order_1",
				Method:  "netbanking",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		if !results[i].AlreadyProcessed {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller must perform the transition")

	camp := campaigns.get("camp_1")
	assert.Equal(t, int64(25000), camp.RaisedAmount)
	assert.Equal(t, int64(1), camp.DonorCount)

	_, ok := receipts.wait(2 * time.Second)
	require.True(t, ok)
	// Give any stray goroutines a moment, then confirm a single receipt.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, receipts.count())
}

func TestSettleAggregateFailureLeavesRowPendingForRetry(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 50000))
	campaigns.creditFailures = 1

	payment := gateway.Payment{ID: "pay_1", OrderID: "order_1", Method: "upi"}

	// The failed aggregate credit must roll the status flip back too;
	// otherwise the retry would see a completed row and the campaign would
	// never be credited.
	result, err := svc.Settle(context.Background(), payment)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.TxStatusPending, txs.get("tx_1").Status)
	assert.Zero(t, campaigns.get("camp_1").RaisedAmount)

	retry, err := svc.Settle(context.Background(), payment)
	require.NoError(t, err)
	assert.False(t, retry.AlreadyProcessed)

	camp := campaigns.get("camp_1")
	assert.Equal(t, int64(50000), camp.RaisedAmount)
	assert.Equal(t, int64(1), camp.DonorCount)
	assert.Equal(t, models.TxStatusCompleted, txs.get("tx_1").Status)
}

func TestSettleUnknownOrderIsNotFabricated(t *testing.T) {
	svc := newTestSettlement(newMemTransactionStore(), newMemCampaignStore(), newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	result, err := svc.Settle(context.Background(), gateway.Payment{ID: "pay_x", OrderID: "order_missing"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, service.ErrTransactionNotFound)
}

func TestSettleRaisedAmountEqualsSumOfSettledDonations(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})

	amounts := []int64{500, 1200, 99900, 100, 2500}
	var want int64
	for i, amount := range amounts {
		id := fmt.Sprintf("tx_%d", i)
		orderID := fmt.Sprintf("order_%d", i)
		txs.put(pendingDonation(id, orderID, "camp_1", amount))

		_, err := svc.Settle(context.Background(), gateway.Payment{
			ID:      fmt.Sprintf("pay_%d", i),
			OrderID: orderID,
		})
		require.NoError(t, err)
		want += amount
	}

	camp := campaigns.get("camp_1")
	assert.Equal(t, want, camp.RaisedAmount)
	assert.Equal(t, int64(len(amounts)), camp.DonorCount)
}

func TestSettleOrderDecrementsStock(t *testing.T) {
	txs := newMemTransactionStore()
	products := newMemProductStore()
	svc := newTestSettlement(txs, newMemCampaignStore(), products, newFakeGateway(), newFakeReceiptSender())

	products.put(&models.Product{ID: "prod_1", Stock: 3, Active: true, Price: 79900})

	order := pendingDonation("tx_1", "order_1", "", 79900)
	order.Kind = models.TxKindOrder
	order.ProductID = "prod_1"
	order.CampaignID = ""
	txs.put(order)

	result, err := svc.Settle(context.Background(), gateway.Payment{ID: "pay_1", OrderID: "order_1"})
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, int64(2), products.get("prod_1").Stock)
}

func TestVerifyAndSettleRejectsBadSignature(t *testing.T) {
	txs := newMemTransactionStore()
	svc := newTestSettlement(txs, newMemCampaignStore(), newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	txs.put(pendingDonation("tx_1", "order_1", "", 1000))

	result, err := svc.VerifyAndSettle(context.Background(), "order_1", "pay_1", "not-a-real-signature")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, service.ErrVerificationFailed)

	// The transaction must be untouched.
	assert.Equal(t, models.TxStatusPending, txs.get("tx_1").Status)
}

func TestVerifyAndSettleAcceptsValidSignature(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	gw := newFakeGateway()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), gw, newFakeReceiptSender())

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 5000))
	gw.payments["pay_1"] = &gateway.Payment{ID: "pay_1", OrderID: "order_1", Method: "upi"}

	verifier := signature.NewVerifier("callback-secret", "webhook-secret")
	sig := verifier.SignClientCallback("order_1", "pay_1")

	result, err := svc.VerifyAndSettle(context.Background(), "order_1", "pay_1", sig)
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, "upi", txs.get("tx_1").Method)
}

func TestVerifyAndSettleSurvivesPaymentFetchFailure(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	gw := newFakeGateway() // no payments registered, fetch will fail
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), gw, newFakeReceiptSender())

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 5000))

	verifier := signature.NewVerifier("callback-secret", "webhook-secret")
	sig := verifier.SignClientCallback("order_1", "pay_1")

	result, err := svc.VerifyAndSettle(context.Background(), "order_1", "pay_1", sig)
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, "unknown", txs.get("tx_1").Method)
}

func TestFailMarksPendingTransaction(t *testing.T) {
	txs := newMemTransactionStore()
	svc := newTestSettlement(txs, newMemCampaignStore(), newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	txs.put(pendingDonation("tx_1", "order_1", "", 1000))

	result, err := svc.Fail(context.Background(), "order_1", "card declined")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)

	stored := txs.get("tx_1")
	assert.Equal(t, models.TxStatusFailed, stored.Status)
	assert.Equal(t, "card declined", stored.FailureReason)
	require.NotNil(t, stored.FailedAt)
}

func TestFailAfterCompletionIsNoOp(t *testing.T) {
	txs := newMemTransactionStore()
	campaigns := newMemCampaignStore()
	svc := newTestSettlement(txs, campaigns, newMemProductStore(), newFakeGateway(), newFakeReceiptSender())

	campaigns.put(&models.Campaign{ID: "camp_1", Status: models.CampaignStatusActive})
	txs.put(pendingDonation("tx_1", "order_1", "camp_1", 1000))

	_, err := svc.Settle(context.Background(), gateway.Payment{ID: "pay_1", OrderID: "order_1"})
	require.NoError(t, err)

	// A late failure webhook must not clobber the completed state.
	result, err := svc.Fail(context.Background(), "order_1", "timeout")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, models.TxStatusCompleted, txs.get("tx_1").Status)
}
