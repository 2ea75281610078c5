package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/repository"
)

// Ошибки проверки перед созданием платежа
var (
	ErrQuoteNotFound  = errors.New("предложение не найдено")
	ErrQuoteInactive  = errors.New("предложение неактивно")
	ErrAmountMismatch = errors.New("сумма не совпадает с суммой предложения")
)

// createIntent - точка вызова Stripe, подменяется в тестах
var createIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return paymentintent.New(params)
}

// PaymentService - создание платёжных интентов и сверка вебхуков Stripe
type PaymentService struct {
	repo          *repository.Repository
	webhookSecret string
}

// NewPaymentService - создание платёжного сервиса
func NewPaymentService(repo *repository.Repository, secretKey, webhookSecret string) *PaymentService {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &PaymentService{
		repo:          repo,
		webhookSecret: webhookSecret,
	}
}

// IntentResult - результат создания интента
type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// CreatePaymentIntent - создание платёжного интента под конкретное предложение.
// Сумма в минорных единицах обязана совпадать с total_amount предложения,
// иначе отказ ещё до обращения к провайдеру. Карта до нашего сервера не доходит:
// клиент завершает оплату напрямую у провайдера по client secret.
func (s *PaymentService) CreatePaymentIntent(quoteID int, amount int64) (*IntentResult, error) {
	quote, err := s.repo.GetQuote(quoteID)
	if err != nil {
		return nil, ErrQuoteNotFound
	}

	if !quote.IsActive {
		return nil, ErrQuoteInactive
	}

	// Авторитетная сумма: total_amount предложения в центах со стандартным округлением
	expected := quote.TotalAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if amount != expected {
		return nil, ErrAmountMismatch
	}

	request, err := s.repo.GetTransportationRequest(quote.TransportationRequestID)
	if err != nil {
		return nil, fmt.Errorf("заявка по предложению не найдена")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("Перевозка автомобиля, заказ %s", request.OrderNumber)),
	}
	// Метаданные прикрепляются здесь и считаются доверенными на стороне вебхука
	params.AddMetadata("quote_id", strconv.Itoa(quote.ID))
	params.AddMetadata("transportation_request_id", strconv.Itoa(request.ID))
	params.AddMetadata("order_number", request.OrderNumber)
	params.AddMetadata("user_id", strconv.Itoa(request.CustomerID))

	pi, err := createIntent(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &IntentResult{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
	}, nil
}

// VerifyEvent - проверка подписи вебхука по секрету
func (s *PaymentService) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

// HandleEvent - сверка события провайдера с состоянием заявки/предложений/платежей.
// Обрабатываются только payment_intent.succeeded и payment_intent.payment_failed,
// остальные события подтверждаются без изменения состояния.
// Ошибка из этого метода превращается в 500, чтобы провайдер повторил доставку,
// поэтому обработка обязана переживать повторный запуск.
func (s *PaymentService) HandleEvent(event stripe.Event) error {
	switch string(event.Type) {
	case "payment_intent.succeeded":
		return s.handleIntentSucceeded(event)
	case "payment_intent.payment_failed":
		return s.handleIntentFailed(event)
	default:
		logrus.Debugf("stripe event %s (%s) ignored", event.ID, event.Type)
		return nil
	}
}

// intentMetadata - идентификаторы, прикреплённые при создании интента
type intentMetadata struct {
	QuoteID     int
	RequestID   int
	OrderNumber string
	UserID      int
}

func extractMetadata(pi *stripe.PaymentIntent) (intentMetadata, error) {
	var meta intentMetadata
	var err error

	meta.QuoteID, err = strconv.Atoi(pi.Metadata["quote_id"])
	if err != nil {
		return meta, fmt.Errorf("missing quote_id in intent metadata")
	}
	meta.RequestID, err = strconv.Atoi(pi.Metadata["transportation_request_id"])
	if err != nil {
		return meta, fmt.Errorf("missing transportation_request_id in intent metadata")
	}
	meta.OrderNumber = pi.Metadata["order_number"]
	meta.UserID, _ = strconv.Atoi(pi.Metadata["user_id"])
	return meta, nil
}

// handleIntentSucceeded - успешная оплата:
// платёж -> заявка paid -> деактивация остальных предложений (best-effort)
func (s *PaymentService) handleIntentSucceeded(event stripe.Event) error {
	// Дедупликация по ID события: повторная доставка подтверждается без второй записи
	existing, err := s.repo.GetPaymentByStripeEventID(event.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		logrus.Infof("stripe event %s already processed, skipping", event.ID)
		return nil
	}

	var pi stripe.PaymentIntent
	if err := unmarshalEventObject(event, &pi); err != nil {
		return err
	}

	meta, err := extractMetadata(&pi)
	if err != nil {
		return err
	}

	chargeID := ""
	if pi.LatestCharge != nil {
		chargeID = pi.LatestCharge.ID
	}

	payment := ds.Payment{
		TransportationRequestID: meta.RequestID,
		QuoteID:                 meta.QuoteID,
		Amount:                  decimal.NewFromInt(pi.Amount).Div(decimal.NewFromInt(100)),
		Currency:                string(pi.Currency),
		Status:                  ds.PaymentCompleted,
		StripePaymentIntentID:   pi.ID,
		StripeChargeID:          chargeID,
		StripeEventID:           event.ID,
	}
	if err := s.repo.CreatePayment(&payment); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.repo.UpdateRequestStatus(meta.RequestID, ds.StatusPaid); err != nil {
		return fmt.Errorf("failed to mark request paid: %w", err)
	}

	// Best-effort: остальные предложения гасим, но оплату уже не откатываем
	if err := s.repo.DeactivateSiblingQuotes(meta.RequestID, meta.QuoteID); err != nil {
		logrus.Errorf("failed to deactivate sibling quotes for request %d: %v", meta.RequestID, err)
	}

	logrus.Infof("заказ %s оплачен (intent %s, event %s)", meta.OrderNumber, pi.ID, event.ID)
	return nil
}

// handleIntentFailed - неуспешная оплата: фиксируем платёж со статусом failed,
// статус заявки не меняем
func (s *PaymentService) handleIntentFailed(event stripe.Event) error {
	existing, err := s.repo.GetPaymentByStripeEventID(event.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		logrus.Infof("stripe event %s already processed, skipping", event.ID)
		return nil
	}

	var pi stripe.PaymentIntent
	if err := unmarshalEventObject(event, &pi); err != nil {
		return err
	}

	meta, err := extractMetadata(&pi)
	if err != nil {
		return err
	}

	reason := "payment failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}

	payment := ds.Payment{
		TransportationRequestID: meta.RequestID,
		QuoteID:                 meta.QuoteID,
		Amount:                  decimal.NewFromInt(pi.Amount).Div(decimal.NewFromInt(100)),
		Currency:                string(pi.Currency),
		Status:                  ds.PaymentFailed,
		StripePaymentIntentID:   pi.ID,
		StripeEventID:           event.ID,
		FailureReason:           reason,
	}
	if err := s.repo.CreatePayment(&payment); err != nil {
		return fmt.Errorf("failed to record failed payment: %w", err)
	}

	logrus.Warnf("оплата по заказу %s не прошла: %s (event %s)", meta.OrderNumber, reason, event.ID)
	return nil
}

func unmarshalEventObject(event stripe.Event, dst interface{}) error {
	if err := json.Unmarshal(event.Data.Raw, dst); err != nil {
		return fmt.Errorf("failed to parse event payload: %w", err)
	}
	return nil
}
