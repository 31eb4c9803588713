package models

import (
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Customer is a clinic client and their treatment profile
type Customer struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                  string    `gorm:"not null" json:"name"`
	Phone                 string    `gorm:"not null" json:"phone"`
	Email                 string    `json:"email"`
	HairType              string    `json:"hair_type"`
	HairColor             string    `json:"hair_color"`
	SkinType              string    `json:"skin_type"`
	Allergies             string    `json:"allergies"`
	CurrentSessions       int       `gorm:"default:0" json:"current_sessions"`
	RemainingSessions     int       `gorm:"default:0" json:"remaining_sessions"`
	MostRequestedServices string    `json:"most_requested_services"`
	RemainingPayments     float64   `gorm:"default:0" json:"remaining_payments"`
	Notes                 string    `gorm:"type:text" json:"notes"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Appointments []Appointment `gorm:"foreignKey:CustomerID" json:"-"`
	Invoices     []Invoice     `gorm:"foreignKey:CustomerID" json:"-"`
}

// Service is a priced treatment offered by the clinic
type Service struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `gorm:"not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment is a booked visit
type Appointment struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID        uint              `gorm:"not null;index" json:"customer_id"`
	Customer          *Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DateTime          time.Time         `gorm:"not null" json:"date_time"`
	Services          string            `gorm:"not null" json:"services"`
	ServiceProvider   string            `gorm:"not null" json:"service_provider"`
	Notes             string            `gorm:"type:text" json:"notes"`
	Status            AppointmentStatus `gorm:"not null" json:"status"`
	RemainingPayments float64           `gorm:"default:0" json:"remaining_payments"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Invoice records a payment for services
type Invoice struct {
	ID              uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID      uint         `gorm:"not null;index" json:"customer_id"`
	Customer        *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	AppointmentID   *uint        `gorm:"index" json:"appointment_id,omitempty"`
	Appointment     *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Date            time.Time    `gorm:"not null" json:"date"`
	Services        string       `gorm:"not null" json:"services"`
	PaymentMethod   string       `gorm:"not null" json:"payment_method"`
	AmountPaid      float64      `gorm:"not null" json:"amount_paid"`
	AmountRemaining float64      `gorm:"default:0" json:"amount_remaining"`
	InvoiceCreator  string       `gorm:"not null" json:"invoice_creator"`
	ServiceProvider string       `gorm:"not null" json:"service_provider"`
	TotalAmount     float64      `gorm:"not null" json:"total_amount"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
