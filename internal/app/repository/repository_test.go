package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autohaul-app/internal/app/ds"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Каждый тест получает свежую схему
	require.NoError(t, db.Migrator().DropTable(
		&ds.Profile{}, &ds.TransportationRequest{}, &ds.Quote{}, &ds.Payment{}, &ds.DocumentAttachment{},
	))

	repo := NewWithDB(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func createTestCustomer(t *testing.T, repo *Repository) ds.Profile {
	t.Helper()
	profile := ds.Profile{
		Login:    "customer1",
		Email:    "customer1@example.com",
		Password: "hash",
		Role:     ds.RoleCustomer,
	}
	require.NoError(t, repo.CreateProfile(&profile))
	return profile
}

func createTestAdmin(t *testing.T, repo *Repository, login string) ds.Profile {
	t.Helper()
	profile := ds.Profile{
		Login:    login,
		Email:    login + "@example.com",
		Password: "hash",
		Role:     ds.RoleAdmin,
	}
	require.NoError(t, repo.CreateProfile(&profile))
	return profile
}

func createTestRequest(t *testing.T, repo *Repository, customerID int) ds.TransportationRequest {
	t.Helper()
	req := ds.TransportationRequest{
		CustomerID:      customerID,
		PickupAddress:   "1 Main St, Springfield, IL",
		DeliveryAddress: "2 Oak Ave, Denver, CO",
		VehicleVIN:      "1HGBH41JXMN109186",
		VehicleMake:     "HONDA",
		VehicleModel:    "Accord",
		VehicleYear:     1991,
	}
	require.NoError(t, repo.CreateTransportationRequest(&req))
	return req
}

func TestCreateTransportationRequestDefaults(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)

	req := ds.TransportationRequest{
		CustomerID:      customer.ID,
		PickupAddress:   "somewhere",
		DeliveryAddress: "elsewhere",
		Status:          "completed", // клиент не может навязать статус
	}
	adminID := 42
	req.AssignedAdminID = &adminID

	require.NoError(t, repo.CreateTransportationRequest(&req))

	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusPending, saved.Status)
	assert.Nil(t, saved.AssignedAdminID)
	assert.NotEmpty(t, saved.OrderNumber)
	assert.Regexp(t, `^AT-\d{8}-[A-F0-9]{6}$`, saved.OrderNumber)
}

func TestClaimTransportationRequest(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin1 := createTestAdmin(t, repo, "admin1")
	admin2 := createTestAdmin(t, repo, "admin2")
	req := createTestRequest(t, repo, customer.ID)

	// Первый админ успешно берёт заявку
	require.NoError(t, repo.ClaimTransportationRequest(req.ID, admin1.ID))

	claimed, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusQuoted, claimed.Status)
	require.NotNil(t, claimed.AssignedAdminID)
	assert.Equal(t, admin1.ID, *claimed.AssignedAdminID)

	// Второй опоздал
	err = repo.ClaimTransportationRequest(req.ID, admin2.ID)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	// Назначение не изменилось
	claimed, err = repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, admin1.ID, *claimed.AssignedAdminID)
}

func TestGetUnassignedRequestsExcludesClaimed(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin := createTestAdmin(t, repo, "admin1")

	free := createTestRequest(t, repo, customer.ID)
	taken := createTestRequest(t, repo, customer.ID)
	require.NoError(t, repo.ClaimTransportationRequest(taken.ID, admin.ID))

	unassigned, err := repo.GetUnassignedRequests()
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, free.ID, unassigned[0].ID)

	assigned, err := repo.GetAssignedRequests(admin.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, taken.ID, assigned[0].ID)
}

func TestAcceptQuoteForRequest(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin := createTestAdmin(t, repo, "admin1")
	req := createTestRequest(t, repo, customer.ID)

	// Принять pending заявку нельзя
	err := repo.AcceptQuoteForRequest(req.ID)
	assert.Error(t, err)

	require.NoError(t, repo.ClaimTransportationRequest(req.ID, admin.ID))
	require.NoError(t, repo.AcceptQuoteForRequest(req.ID))

	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusAccepted, saved.Status)
}

func TestUpdateRequestStatusTransitions(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin := createTestAdmin(t, repo, "admin1")
	req := createTestRequest(t, repo, customer.ID)

	// pending нельзя перепрыгнуть сразу в completed или in_progress
	assert.ErrorIs(t, repo.UpdateRequestStatus(req.ID, ds.StatusCompleted), ErrInvalidTransition)
	assert.ErrorIs(t, repo.UpdateRequestStatus(req.ID, ds.StatusInProgress), ErrInvalidTransition)

	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusPending, saved.Status)
	assert.Nil(t, saved.AssignedAdminID)

	// Полный цикл вперёд проходит
	require.NoError(t, repo.ClaimTransportationRequest(req.ID, admin.ID))
	require.NoError(t, repo.AcceptQuoteForRequest(req.ID))
	require.NoError(t, repo.UpdateRequestStatus(req.ID, ds.StatusPaid))
	require.NoError(t, repo.UpdateRequestStatus(req.ID, ds.StatusInProgress))
	require.NoError(t, repo.UpdateRequestStatus(req.ID, ds.StatusCompleted))

	// Назад по циклу и из терминального статуса - нельзя
	assert.ErrorIs(t, repo.UpdateRequestStatus(req.ID, ds.StatusPaid), ErrInvalidTransition)
	assert.ErrorIs(t, repo.UpdateRequestStatus(req.ID, ds.StatusCancelled), ErrInvalidTransition)

	// Неизвестный статус и незнакомая заявка
	assert.ErrorIs(t, repo.UpdateRequestStatus(req.ID, "teleported"), ErrInvalidTransition)
	err = repo.UpdateRequestStatus(99999, ds.StatusCancelled)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateRequestStatusCancelNonTerminal(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	req := createTestRequest(t, repo, customer.ID)

	require.NoError(t, repo.UpdateRequestStatus(req.ID, ds.StatusCancelled))

	saved, err := repo.GetTransportationRequest(req.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.StatusCancelled, saved.Status)
}

func TestDeactivateSiblingQuotes(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin := createTestAdmin(t, repo, "admin1")
	req := createTestRequest(t, repo, customer.ID)

	q1 := ds.Quote{TransportationRequestID: req.ID, AdminID: admin.ID, TotalAmount: decimal.NewFromInt(400)}
	q2 := ds.Quote{TransportationRequestID: req.ID, AdminID: admin.ID, TotalAmount: decimal.NewFromInt(450)}
	q3 := ds.Quote{TransportationRequestID: req.ID, AdminID: admin.ID, TotalAmount: decimal.NewFromInt(500)}
	require.NoError(t, repo.CreateQuote(&q1))
	require.NoError(t, repo.CreateQuote(&q2))
	require.NoError(t, repo.CreateQuote(&q3))

	require.NoError(t, repo.DeactivateSiblingQuotes(req.ID, q2.ID))

	quotes, err := repo.GetQuotesForRequest(req.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	for _, q := range quotes {
		if q.ID == q2.ID {
			assert.True(t, q.IsActive, "paid quote must stay active")
		} else {
			assert.False(t, q.IsActive, "sibling quote must be deactivated")
		}
	}

	// Повторный вызов - no-op
	require.NoError(t, repo.DeactivateSiblingQuotes(req.ID, q2.ID))
}

func TestGetPaymentByStripeEventID(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	req := createTestRequest(t, repo, customer.ID)

	// Не найдено - nil без ошибки
	payment, err := repo.GetPaymentByStripeEventID("evt_missing")
	require.NoError(t, err)
	assert.Nil(t, payment)

	created := ds.Payment{
		TransportationRequestID: req.ID,
		QuoteID:                 1,
		Amount:                  decimal.NewFromFloat(450.00),
		Currency:                "usd",
		Status:                  ds.PaymentCompleted,
		StripePaymentIntentID:   "pi_123",
		StripeEventID:           "evt_123",
	}
	require.NoError(t, repo.CreatePayment(&created))

	payment, err = repo.GetPaymentByStripeEventID("evt_123")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, "pi_123", payment.StripePaymentIntentID)
	assert.True(t, payment.Amount.Equal(decimal.NewFromFloat(450.00)))
}

func TestGetTrackingView(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	req := createTestRequest(t, repo, customer.ID)

	view, err := repo.GetTrackingView(req.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, req.OrderNumber, view.OrderNumber)
	assert.Equal(t, ds.StatusPending, view.Status)

	_, err = repo.GetTrackingView("AT-00000000-XXXXXX")
	assert.Error(t, err)
}

func TestGrantAdminRole(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	assert.Equal(t, ds.RoleCustomer, customer.Role)

	exists, err := repo.AdminExists()
	require.NoError(t, err)
	assert.False(t, exists)

	granted, err := repo.GrantAdminRole(customer.UUID)
	require.NoError(t, err)
	assert.Equal(t, ds.RoleAdmin, granted.Role)

	exists, err = repo.AdminExists()
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.GrantAdminRole("missing-uuid")
	assert.Error(t, err)
}

func TestGetAdminStats(t *testing.T) {
	repo := newTestRepo(t)
	customer := createTestCustomer(t, repo)
	admin := createTestAdmin(t, repo, "admin1")

	r1 := createTestRequest(t, repo, customer.ID)
	createTestRequest(t, repo, customer.ID)
	require.NoError(t, repo.ClaimTransportationRequest(r1.ID, admin.ID))

	require.NoError(t, repo.CreatePayment(&ds.Payment{
		TransportationRequestID: r1.ID,
		QuoteID:                 1,
		Amount:                  decimal.NewFromFloat(450.50),
		Status:                  ds.PaymentCompleted,
		StripeEventID:           "evt_1",
	}))
	require.NoError(t, repo.CreatePayment(&ds.Payment{
		TransportationRequestID: r1.ID,
		QuoteID:                 1,
		Amount:                  decimal.NewFromFloat(100.00),
		Status:                  ds.PaymentFailed,
		StripeEventID:           "evt_2",
	}))

	stats, err := repo.GetAdminStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.Unassigned)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Quoted)
	// Выручка считает только завершённые платежи
	assert.True(t, stats.Revenue.Equal(decimal.NewFromFloat(450.50)), "revenue = %s", stats.Revenue)
}
