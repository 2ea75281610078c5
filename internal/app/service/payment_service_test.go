package service

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/repository"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(
		&ds.Profile{}, &ds.TransportationRequest{}, &ds.Quote{}, &ds.Payment{}, &ds.DocumentAttachment{},
	))

	repo := repository.NewWithDB(db)
	require.NoError(t, repo.Migrate())
	return repo
}

// seedQuote - клиент, заявка и активное предложение на 450.00
func seedQuote(t *testing.T, repo *repository.Repository) (ds.TransportationRequest, ds.Quote) {
	t.Helper()

	customer := ds.Profile{Login: "cust", Email: "cust@example.com", Password: "hash", Role: ds.RoleCustomer}
	require.NoError(t, repo.CreateProfile(&customer))
	admin := ds.Profile{Login: "adm", Email: "adm@example.com", Password: "hash", Role: ds.RoleAdmin}
	require.NoError(t, repo.CreateProfile(&admin))

	req := ds.TransportationRequest{
		CustomerID:      customer.ID,
		PickupAddress:   "pickup",
		DeliveryAddress: "delivery",
	}
	require.NoError(t, repo.CreateTransportationRequest(&req))
	require.NoError(t, repo.ClaimTransportationRequest(req.ID, admin.ID))

	quote := ds.Quote{
		TransportationRequestID: req.ID,
		AdminID:                 admin.ID,
		TotalAmount:             decimal.NewFromFloat(450.00),
	}
	require.NoError(t, repo.CreateQuote(&quote))
	return req, quote
}

// stubIntent - подмена вызова Stripe, возвращает счётчик вызовов
func stubIntent(t *testing.T) *int {
	t.Helper()
	calls := 0
	orig := createIntent
	createIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		calls++
		return &stripe.PaymentIntent{
			ID:           "pi_test",
			ClientSecret: "pi_test_secret_abc",
		}, nil
	}
	t.Cleanup(func() { createIntent = orig })
	return &calls
}

func TestCreatePaymentIntent(t *testing.T) {
	repo := newTestRepo(t)
	_, quote := seedQuote(t, repo)
	calls := stubIntent(t)

	s := NewPaymentService(repo, "", "whsec_test")

	result, err := s.CreatePaymentIntent(quote.ID, 45000)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_secret_abc", result.ClientSecret)
	assert.Equal(t, "pi_test", result.PaymentIntentID)
	assert.Equal(t, 1, *calls)
}

func TestCreatePaymentIntentAmountMismatch(t *testing.T) {
	repo := newTestRepo(t)
	_, quote := seedQuote(t, repo)
	calls := stubIntent(t)

	s := NewPaymentService(repo, "", "whsec_test")

	// Предложение на 450.00, клиент прислал 45001 центов
	_, err := s.CreatePaymentIntent(quote.ID, 45001)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, 0, *calls, "mismatched amount must be rejected before calling the provider")
}

func TestCreatePaymentIntentInactiveQuote(t *testing.T) {
	repo := newTestRepo(t)
	req, quote := seedQuote(t, repo)
	calls := stubIntent(t)

	// Деактивируем: оплаченным считаем другое (несуществующее) предложение
	require.NoError(t, repo.DeactivateSiblingQuotes(req.ID, quote.ID+100))

	s := NewPaymentService(repo, "", "whsec_test")

	_, err := s.CreatePaymentIntent(quote.ID, 45000)
	assert.ErrorIs(t, err, ErrQuoteInactive)
	assert.Equal(t, 0, *calls)
}

func TestCreatePaymentIntentQuoteNotFound(t *testing.T) {
	repo := newTestRepo(t)
	calls := stubIntent(t)

	s := NewPaymentService(repo, "", "whsec_test")

	_, err := s.CreatePaymentIntent(99999, 45000)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
	assert.Equal(t, 0, *calls)
}

// intentEvent - событие вебхука с полезной нагрузкой PaymentIntent
func intentEvent(eventID, eventType string, requestID, quoteID int, amount int64) stripe.Event {
	raw := fmt.Sprintf(`{
		"id": "pi_evt",
		"amount": %d,
		"currency": "usd",
		"metadata": {
			"quote_id": "%d",
			"transportation_request_id": "%d",
			"order_number": "AT-20260830-ABCDEF",
			"user_id": "1"
		}
	}`, amount, quoteID, requestID)

	return stripe.Event{
		ID:   eventID,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestHandleEventSucceeded(t *testing.T) {
	repo := newTestRepo(t)
	req, quote := seedQuote(t, repo)

	// Второе предложение должно погаснуть после оплаты первого
	sibling := ds.Quote{TransportationRequestID: req.ID, AdminID: quote.AdminID, TotalAmount: decimal.NewFromInt(500)}
	require.NoError(t, repo.CreateQuote(&sibling))

	s := NewPaymentService(repo, "", "whsec_test")

	event := intentEvent("evt_success", "payment_intent.succeeded", req.ID, quote.ID, 45000)
	require.NoError(t, s.HandleEvent(event))

	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusPaid, saved.Status)

	payments, err := repo.GetPaymentsForRequest(req.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, ds.PaymentCompleted, payments[0].Status)
	assert.Equal(t, "pi_evt", payments[0].StripePaymentIntentID)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromFloat(450.00)))

	quotes, err := repo.GetQuotesForRequest(req.ID)
	require.NoError(t, err)
	for _, q := range quotes {
		if q.ID == quote.ID {
			assert.True(t, q.IsActive)
		} else {
			assert.False(t, q.IsActive)
		}
	}
}

func TestHandleEventDuplicateDelivery(t *testing.T) {
	repo := newTestRepo(t)
	req, quote := seedQuote(t, repo)

	s := NewPaymentService(repo, "", "whsec_test")

	event := intentEvent("evt_dup", "payment_intent.succeeded", req.ID, quote.ID, 45000)
	require.NoError(t, s.HandleEvent(event))
	// Повторная доставка того же события подтверждается без второй записи
	require.NoError(t, s.HandleEvent(event))

	payments, err := repo.GetPaymentsForRequest(req.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestHandleEventPaymentFailed(t *testing.T) {
	repo := newTestRepo(t)
	req, quote := seedQuote(t, repo)

	s := NewPaymentService(repo, "", "whsec_test")

	event := intentEvent("evt_fail", "payment_intent.payment_failed", req.ID, quote.ID, 45000)
	require.NoError(t, s.HandleEvent(event))

	// Статус заявки не меняется
	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusQuoted, saved.Status)

	payments, err := repo.GetPaymentsForRequest(req.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, ds.PaymentFailed, payments[0].Status)
	assert.NotEmpty(t, payments[0].FailureReason)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	repo := newTestRepo(t)
	req, quote := seedQuote(t, repo)

	s := NewPaymentService(repo, "", "whsec_test")

	event := intentEvent("evt_other", "charge.refunded", req.ID, quote.ID, 45000)
	require.NoError(t, s.HandleEvent(event))

	payments, err := repo.GetPaymentsForRequest(req.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestHandleEventMissingMetadata(t *testing.T) {
	repo := newTestRepo(t)
	seedQuote(t, repo)

	s := NewPaymentService(repo, "", "whsec_test")

	event := stripe.Event{
		ID:   "evt_no_meta",
		Type: stripe.EventType("payment_intent.succeeded"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id": "pi_x", "amount": 100, "currency": "usd", "metadata": {}}`)},
	}
	err := s.HandleEvent(event)
	assert.Error(t, err)
}
