package ds

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы заявки на перевозку автомобиля
const (
	StatusPending    = "pending"     // новая заявка, ещё не взята админом
	StatusQuoted     = "quoted"      // админ взял заявку и выставил цену
	StatusAccepted   = "accepted"    // клиент принял предложение
	StatusPaid       = "paid"        // оплата подтверждена вебхуком
	StatusInProgress = "in_progress" // перевозка выполняется
	StatusCompleted  = "completed"   // перевозка завершена
	StatusCancelled  = "cancelled"   // заявка отменена
)

// Роли пользователей
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Статусы платежа
const (
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Profile - профиль пользователя (клиент или админ)
type Profile struct {
	ID        int            `json:"id" gorm:"primaryKey"`
	UUID      string         `json:"uuid" gorm:"uniqueIndex;size:36"`
	Login     string         `json:"login" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"not null"`
	Password  string         `json:"-" gorm:"not null"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	Role      string         `json:"role" gorm:"not null;default:customer"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Profile) TableName() string { return "profiles" }

// TransportationRequest - заявка на перевозку автомобиля
type TransportationRequest struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	OrderNumber string `json:"order_number" gorm:"uniqueIndex;not null"`
	CustomerID  int    `json:"customer_id" gorm:"not null;index"`

	// Откуда забираем
	PickupCompany string  `json:"pickup_company"`
	PickupAddress string  `json:"pickup_address" gorm:"not null"`
	PickupContact string  `json:"pickup_contact"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`

	// Куда доставляем
	DeliveryCompany string  `json:"delivery_company"`
	DeliveryAddress string  `json:"delivery_address" gorm:"not null"`
	DeliveryContact string  `json:"delivery_contact"`
	DeliveryLat     float64 `json:"delivery_lat"`
	DeliveryLng     float64 `json:"delivery_lng"`

	// Автомобиль
	VehicleVIN   string `json:"vehicle_vin" gorm:"size:17"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehicleYear  int    `json:"vehicle_year"`

	// AssignedAdminID равен NULL ровно до тех пор пока статус pending
	Status          string `json:"status" gorm:"not null;default:pending;index"`
	AssignedAdminID *int   `json:"assigned_admin_id" gorm:"index"`
	Notes           string `json:"notes"`

	Customer      *Profile       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	AssignedAdmin *Profile       `json:"assigned_admin,omitempty" gorm:"foreignKey:AssignedAdminID"`
	Quotes        []Quote        `json:"quotes,omitempty" gorm:"foreignKey:TransportationRequestID"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

func (TransportationRequest) TableName() string { return "transportation_requests" }

// Quote - ценовое предложение админа по заявке
type Quote struct {
	ID                      int             `json:"id" gorm:"primaryKey"`
	TransportationRequestID int             `json:"transportation_request_id" gorm:"not null;index"`
	AdminID                 int             `json:"admin_id" gorm:"not null"`
	TotalAmount             decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	IsActive                bool            `json:"is_active" gorm:"not null;default:true"`
	Notes                   string          `json:"notes"`
	ValidUntil              *time.Time      `json:"valid_until"`
	CreatedAt               time.Time       `json:"created_at"`
}

func (Quote) TableName() string { return "quotes" }

// Payment - запись об одной попытке оплаты (создаётся только вебхуком)
type Payment struct {
	ID                      int             `json:"id" gorm:"primaryKey"`
	TransportationRequestID int             `json:"transportation_request_id" gorm:"not null;index"`
	QuoteID                 int             `json:"quote_id" gorm:"not null"`
	Amount                  decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency                string          `json:"currency" gorm:"size:3;default:usd"`
	Status                  string          `json:"status" gorm:"not null"`
	StripePaymentIntentID   string          `json:"stripe_payment_intent_id" gorm:"index"`
	StripeChargeID          string          `json:"stripe_charge_id"`
	StripeEventID           string          `json:"stripe_event_id" gorm:"uniqueIndex"`
	FailureReason           string          `json:"failure_reason"`
	CreatedAt               time.Time       `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// DocumentAttachment - метаданные загруженного файла по заявке
type DocumentAttachment struct {
	ID                      int       `json:"id" gorm:"primaryKey"`
	TransportationRequestID int       `json:"transportation_request_id" gorm:"not null;index"`
	UploaderID              int       `json:"uploader_id" gorm:"not null"`
	FileName                string    `json:"file_name" gorm:"not null"`
	FileSize                int64     `json:"file_size"`
	ContentType             string    `json:"content_type"`
	StoragePath             string    `json:"storage_path" gorm:"not null"`
	CreatedAt               time.Time `json:"created_at"`
}

func (DocumentAttachment) TableName() string { return "document_attachments" }
