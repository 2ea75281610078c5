package ds

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackingView — публичное представление заявки для трекинга по номеру заказа.
// Читается из той же таблицы, но наружу отдаём только безопасный срез полей.
type TrackingView struct {
	OrderNumber  string    `json:"order_number"`
	Status       string    `json:"status"`
	VehicleMake  string    `json:"vehicle_make"`
	VehicleModel string    `json:"vehicle_model"`
	VehicleYear  int       `json:"vehicle_year"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (TrackingView) TableName() string { return "transportation_requests" }

// AdminStats — сводка для панели администратора (периодический опрос из UI)
type AdminStats struct {
	TotalRequests int64           `json:"total_requests"`
	Unassigned    int64           `json:"unassigned"`
	Pending       int64           `json:"pending"`
	Quoted        int64           `json:"quoted"`
	Accepted      int64           `json:"accepted"`
	Paid          int64           `json:"paid"`
	InProgress    int64           `json:"in_progress"`
	Completed     int64           `json:"completed"`
	Cancelled     int64           `json:"cancelled"`
	Revenue       decimal.Decimal `json:"revenue"`
}
