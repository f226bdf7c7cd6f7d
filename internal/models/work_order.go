package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderNumberScheme string

const (
	SchemeTuVision   OrderNumberScheme = "tu_vision"
	SchemeOpticolors OrderNumberScheme = "opticolors"
	SchemeOptivaVR   OrderNumberScheme = "optiva_vr"
)

type OrderType string

const (
	OrderFrame  OrderType = "frame"
	OrderLenses OrderType = "lenses"
	OrderFull   OrderType = "full"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
)

// Customer is copied onto the order when it is created.
type Customer struct {
	Name       string `gorm:"not null" json:"name"`
	NationalID string `gorm:"index"    json:"national_id"`
	Phone      string `                json:"phone,omitempty"`
}

type LensEye struct {
	Sphere   string `json:"sphere"`
	Cylinder string `json:"cylinder"`
	Axis     string `json:"axis"`
}

type LensPair struct {
	Right LensEye `json:"right"`
	Left  LensEye `json:"left"`
}

type LensDetails struct {
	PupillaryDistance string `json:"pupillary_distance,omitempty"`
	Material          string `json:"material,omitempty"`
	Code              string `json:"code,omitempty"`
	Color             string `json:"color,omitempty"`
	FrameBrand        string `json:"frame_brand,omitempty"`
}

// LensSnapshot is the prescription as it was written on the order.
type LensSnapshot struct {
	Distance        LensPair    `json:"distance"`
	Near            LensPair    `json:"near"`
	Addition        string      `json:"addition,omitempty"`
	DistanceDetails LensDetails `json:"distance_details"`
	NearDetails     LensDetails `json:"near_details"`
}

type Purchase struct {
	Total         int64         `gorm:"not null" json:"total"`
	Deposit       int64         `gorm:"not null" json:"deposit"`
	Balance       int64         `gorm:"not null" json:"balance"`
	PaymentMethod PaymentMethod `                json:"payment_method,omitempty"`
	DeliveryDate  *time.Time    `                json:"delivery_date,omitempty"`
}

type WorkOrder struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"              json:"id"`
	OrderNumber       int64             `gorm:"uniqueIndex;not null"              json:"order_number"`
	ManualOrderNumber string            `                                         json:"manual_order_number,omitempty"`
	OrderNumberScheme OrderNumberScheme `                                         json:"order_number_scheme,omitempty"`
	OrderType         OrderType         `gorm:"not null"                          json:"order_type"`
	Customer          Customer          `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	PrescriptionID    *uuid.UUID        `gorm:"type:uuid"                         json:"prescription_id,omitempty"`
	Lens              *LensSnapshot     `gorm:"serializer:json;type:text"         json:"lens,omitempty"`
	Purchase          Purchase          `gorm:"embedded;embeddedPrefix:purchase_" json:"purchase"`
	SaleDate          time.Time         `gorm:"not null"                          json:"sale_date"`
	Notes             string            `                                         json:"notes,omitempty"`
	CreatedByID       uuid.UUID         `gorm:"type:uuid;index"                   json:"created_by_id"`
	Creator           *User             `gorm:"foreignKey:CreatedByID"            json:"creator,omitempty"`
	UpdatedByID       *uuid.UUID        `gorm:"type:uuid"                         json:"updated_by_id,omitempty"`
	Updater           *User             `gorm:"foreignKey:UpdatedByID"            json:"updater,omitempty"`
	CreatedAt         time.Time         `gorm:"index"                             json:"created_at"`
	UpdatedAt         time.Time         `                                         json:"updated_at"`
}

func (w *WorkOrder) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Counter backs sequence allocation.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}
