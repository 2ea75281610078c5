package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"autohaul-app/internal/app/ds"
)

// ErrAlreadyClaimed - заявку уже взял другой админ (условный UPDATE не затронул строк)
var ErrAlreadyClaimed = errors.New("заявка уже взята другим администратором")

// ErrInvalidTransition - запрошенный статус недостижим из текущего
var ErrInvalidTransition = errors.New("недопустимый переход статуса")

// Допустимые предшественники для каждого целевого статуса.
// quoted здесь нет: pending -> quoted делает только ClaimTransportationRequest,
// accepted - только AcceptQuoteForRequest. paid допускает paid для
// идемпотентности вебхука при повторной оплате того же заказа.
var allowedPredecessors = map[string][]string{
	ds.StatusPaid:       {ds.StatusQuoted, ds.StatusAccepted, ds.StatusPaid},
	ds.StatusInProgress: {ds.StatusPaid},
	ds.StatusCompleted:  {ds.StatusInProgress},
	ds.StatusCancelled:  {ds.StatusPending, ds.StatusQuoted, ds.StatusAccepted, ds.StatusPaid, ds.StatusInProgress},
}

type Repository struct {
	db *gorm.DB
}

func New(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{}) // подключаемся к БД
	if err != nil {
		return nil, err
	}

	return &Repository{
		db: db,
	}, nil
}

// NewWithDB - создание репозитория поверх готового подключения (для тестов)
func NewWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate - применение схемы (dev-окружение и тесты)
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&ds.Profile{},
		&ds.TransportationRequest{},
		&ds.Quote{},
		&ds.Payment{},
		&ds.DocumentAttachment{},
	)
}

// ==================== ПРОФИЛИ ====================

// CreateProfile - создание профиля пользователя
func (r *Repository) CreateProfile(profile *ds.Profile) error {
	// Генерируем UUID если он не задан
	if profile.UUID == "" {
		profile.UUID = uuid.New().String()
	}
	return r.db.Create(profile).Error
}

// GetProfileByLogin - получение профиля по логину
func (r *Repository) GetProfileByLogin(login string) (ds.Profile, error) {
	var profile ds.Profile
	err := r.db.Where("login = ?", login).First(&profile).Error
	if err != nil {
		return ds.Profile{}, fmt.Errorf("пользователь не найден")
	}
	return profile, nil
}

// GetProfile - получение профиля по ID
func (r *Repository) GetProfile(id int) (ds.Profile, error) {
	var profile ds.Profile
	err := r.db.Where("id = ?", id).First(&profile).Error
	if err != nil {
		return ds.Profile{}, fmt.Errorf("пользователь не найден")
	}
	return profile, nil
}

// GetProfileByUUID - получение профиля по UUID
func (r *Repository) GetProfileByUUID(userUUID string) (ds.Profile, error) {
	var profile ds.Profile
	err := r.db.Where("uuid = ?", userUUID).First(&profile).Error
	if err != nil {
		return ds.Profile{}, fmt.Errorf("пользователь не найден")
	}
	return profile, nil
}

// UpdateProfile - обновление профиля
func (r *Repository) UpdateProfile(profile *ds.Profile) error {
	return r.db.Save(profile).Error
}

// AdminExists - есть ли в системе хотя бы один администратор
func (r *Repository) AdminExists() (bool, error) {
	var count int64
	err := r.db.Model(&ds.Profile{}).
		Where("role = ?", ds.RoleAdmin).Count(&count).Error
	return count > 0, err
}

// GrantAdminRole - привилегированное назначение роли admin (мимо обычных проверок владельца)
func (r *Repository) GrantAdminRole(userUUID string) (ds.Profile, error) {
	var profile ds.Profile
	if err := r.db.Where("uuid = ?", userUUID).First(&profile).Error; err != nil {
		return ds.Profile{}, fmt.Errorf("пользователь не найден")
	}

	profile.Role = ds.RoleAdmin
	if err := r.db.Save(&profile).Error; err != nil {
		return ds.Profile{}, err
	}
	return profile, nil
}

// ==================== ЗАЯВКИ НА ПЕРЕВОЗКУ ====================

// generateOrderNumber - человекочитаемый уникальный номер заказа
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("AT-%s-%s", time.Now().Format("20060102"), suffix)
}

// CreateTransportationRequest - создание заявки клиентом (статус pending, номер генерируется)
func (r *Repository) CreateTransportationRequest(req *ds.TransportationRequest) error {
	if req.OrderNumber == "" {
		req.OrderNumber = generateOrderNumber()
	}
	req.Status = ds.StatusPending
	req.AssignedAdminID = nil
	return r.db.Create(req).Error
}

// GetTransportationRequest - получение заявки по ID со связями
func (r *Repository) GetTransportationRequest(id int) (ds.TransportationRequest, error) {
	var req ds.TransportationRequest
	err := r.db.Preload("Customer").Preload("AssignedAdmin").Preload("Quotes").
		Where("id = ?", id).First(&req).Error
	if err != nil {
		return ds.TransportationRequest{}, fmt.Errorf("заявка не найдена")
	}
	return req, nil
}

// GetTransportationRequestsForCustomer - заявки конкретного клиента
func (r *Repository) GetTransportationRequestsForCustomer(customerID int) ([]ds.TransportationRequest, error) {
	var requests []ds.TransportationRequest
	err := r.db.Preload("Quotes").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// GetTransportationRequests - все заявки с фильтрацией по статусу и датам (для админа)
func (r *Repository) GetTransportationRequests(status string, dateFrom, dateTo *time.Time) ([]ds.TransportationRequest, error) {
	var requests []ds.TransportationRequest

	query := r.db.Preload("Customer").Preload("AssignedAdmin")

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if dateFrom != nil {
		query = query.Where("created_at >= ?", *dateFrom)
	}

	if dateTo != nil {
		query = query.Where("created_at <= ?", *dateTo)
	}

	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// GetUnassignedRequests - очередь новых заявок: pending и без назначенного админа
func (r *Repository) GetUnassignedRequests() ([]ds.TransportationRequest, error) {
	var requests []ds.TransportationRequest
	err := r.db.Preload("Customer").
		Where("status = ? AND assigned_admin_id IS NULL", ds.StatusPending).
		Order("created_at ASC").Find(&requests).Error
	return requests, err
}

// GetAssignedRequests - заявки, взятые конкретным админом
func (r *Repository) GetAssignedRequests(adminID int) ([]ds.TransportationRequest, error) {
	var requests []ds.TransportationRequest
	err := r.db.Preload("Customer").Preload("Quotes").
		Where("assigned_admin_id = ?", adminID).
		Order("updated_at DESC").Find(&requests).Error
	return requests, err
}

// ClaimTransportationRequest - админ берёт свободную заявку.
// Условный UPDATE в один запрос: срабатывает только пока assigned_admin_id IS NULL,
// поэтому двое админов не могут взять одну заявку (ноль затронутых строк = опоздал).
func (r *Repository) ClaimTransportationRequest(requestID, adminID int) error {
	res := r.db.Model(&ds.TransportationRequest{}).
		Where("id = ? AND assigned_admin_id IS NULL AND status = ?", requestID, ds.StatusPending).
		Updates(map[string]interface{}{
			"assigned_admin_id": adminID,
			"status":            ds.StatusQuoted,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// UpdateRequestStatus - перевод заявки по жизненному циклу.
// Условный UPDATE: срабатывает только из допустимого предыдущего статуса,
// назад по циклу заявку сдвинуть нельзя.
func (r *Repository) UpdateRequestStatus(requestID int, newStatus string) error {
	allowed, ok := allowedPredecessors[newStatus]
	if !ok {
		return ErrInvalidTransition
	}

	res := r.db.Model(&ds.TransportationRequest{}).
		Where("id = ? AND status IN ?", requestID, allowed).
		Update("status", newStatus)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&ds.TransportationRequest{}).
			Where("id = ?", requestID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("заявка %d не найдена", requestID)
		}
		return ErrInvalidTransition
	}
	return nil
}

// AcceptQuoteForRequest - клиент принимает предложение: quoted -> accepted
func (r *Repository) AcceptQuoteForRequest(requestID int) error {
	res := r.db.Model(&ds.TransportationRequest{}).
		Where("id = ? AND status = ?", requestID, ds.StatusQuoted).
		Update("status", ds.StatusAccepted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("принять можно только заявку в статусе quoted")
	}
	return nil
}

// UpdateRequestNotes - обновление заметок по заявке
func (r *Repository) UpdateRequestNotes(requestID int, notes string) error {
	return r.db.Model(&ds.TransportationRequest{}).
		Where("id = ?", requestID).
		Update("notes", notes).Error
}

// GetTrackingView - публичный трекинг по номеру заказа (урезанное представление)
func (r *Repository) GetTrackingView(orderNumber string) (ds.TrackingView, error) {
	var view ds.TrackingView
	err := r.db.Model(&ds.TransportationRequest{}).
		Where("order_number = ?", orderNumber).
		First(&view).Error
	if err != nil {
		return ds.TrackingView{}, fmt.Errorf("заказ не найден")
	}
	return view, nil
}

// ==================== ПРЕДЛОЖЕНИЯ ====================

// CreateQuote - создание ценового предложения админом
func (r *Repository) CreateQuote(quote *ds.Quote) error {
	quote.IsActive = true
	return r.db.Create(quote).Error
}

// GetQuote - получение предложения по ID
func (r *Repository) GetQuote(id int) (ds.Quote, error) {
	var quote ds.Quote
	err := r.db.Where("id = ?", id).First(&quote).Error
	if err != nil {
		return ds.Quote{}, fmt.Errorf("предложение не найдено")
	}
	return quote, nil
}

// GetQuotesForRequest - все предложения по заявке
func (r *Repository) GetQuotesForRequest(requestID int) ([]ds.Quote, error) {
	var quotes []ds.Quote
	err := r.db.Where("transportation_request_id = ?", requestID).
		Order("created_at DESC").Find(&quotes).Error
	return quotes, err
}

// DeactivateSiblingQuotes - деактивация всех остальных предложений по заявке
// (оплаченное предложение не трогаем). Повторный вызов - no-op.
func (r *Repository) DeactivateSiblingQuotes(requestID, paidQuoteID int) error {
	return r.db.Model(&ds.Quote{}).
		Where("transportation_request_id = ? AND id != ?", requestID, paidQuoteID).
		Update("is_active", false).Error
}

// ==================== ПЛАТЕЖИ ====================

// CreatePayment - запись платежа (вызывается только из обработчика вебхука)
func (r *Repository) CreatePayment(payment *ds.Payment) error {
	return r.db.Create(payment).Error
}

// GetPaymentByStripeEventID - поиск платежа по ID события провайдера (дедупликация вебхука)
func (r *Repository) GetPaymentByStripeEventID(eventID string) (*ds.Payment, error) {
	var payment ds.Payment
	err := r.db.Where("stripe_event_id = ?", eventID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsForRequest - платежи по заявке (аудит)
func (r *Repository) GetPaymentsForRequest(requestID int) ([]ds.Payment, error) {
	var payments []ds.Payment
	err := r.db.Where("transportation_request_id = ?", requestID).
		Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// ==================== ДОКУМЕНТЫ ====================

// CreateDocumentAttachment - сохранение метаданных загруженного файла
func (r *Repository) CreateDocumentAttachment(doc *ds.DocumentAttachment) error {
	return r.db.Create(doc).Error
}

// GetDocumentsForRequest - документы по заявке
func (r *Repository) GetDocumentsForRequest(requestID int) ([]ds.DocumentAttachment, error) {
	var docs []ds.DocumentAttachment
	err := r.db.Where("transportation_request_id = ?", requestID).
		Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// GetDocumentAttachment - метаданные документа по ID
func (r *Repository) GetDocumentAttachment(id int) (ds.DocumentAttachment, error) {
	var doc ds.DocumentAttachment
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return ds.DocumentAttachment{}, fmt.Errorf("документ не найден")
	}
	return doc, nil
}

// ==================== СТАТИСТИКА ====================

// GetAdminStats - сводка по заявкам для панели администратора
func (r *Repository) GetAdminStats() (ds.AdminStats, error) {
	var stats ds.AdminStats

	if err := r.db.Model(&ds.TransportationRequest{}).Count(&stats.TotalRequests).Error; err != nil {
		return stats, err
	}

	if err := r.db.Model(&ds.TransportationRequest{}).
		Where("status = ? AND assigned_admin_id IS NULL", ds.StatusPending).
		Count(&stats.Unassigned).Error; err != nil {
		return stats, err
	}

	counts := map[string]*int64{
		ds.StatusPending:    &stats.Pending,
		ds.StatusQuoted:     &stats.Quoted,
		ds.StatusAccepted:   &stats.Accepted,
		ds.StatusPaid:       &stats.Paid,
		ds.StatusInProgress: &stats.InProgress,
		ds.StatusCompleted:  &stats.Completed,
		ds.StatusCancelled:  &stats.Cancelled,
	}
	for status, dst := range counts {
		if err := r.db.Model(&ds.TransportationRequest{}).
			Where("status = ?", status).Count(dst).Error; err != nil {
			return stats, err
		}
	}

	// Выручка: сумма завершённых платежей
	var revenue float64
	err := r.db.Model(&ds.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", ds.PaymentCompleted).
		Scan(&revenue).Error
	if err != nil {
		return stats, err
	}
	stats.Revenue = decimal.NewFromFloat(revenue).Round(2)

	return stats, nil
}
