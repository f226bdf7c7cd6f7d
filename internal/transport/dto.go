package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/optica/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email      string      `json:"email"       validate:"required,email"`
	Password   string      `json:"password"    validate:"required,min=6"`
	Name       string      `json:"name"        validate:"required"`
	NationalID string      `json:"national_id"`
	Role       models.Role `json:"role"        validate:"omitempty,oneof=admin seller"`
}

type PatchUserRequest struct {
	Email      *string      `json:"email"       validate:"omitempty,email"`
	Password   *string      `json:"password"    validate:"omitempty,min=6"`
	Name       *string      `json:"name"        validate:"omitempty,min=1"`
	NationalID *string      `json:"national_id"`
	Role       *models.Role `json:"role"        validate:"omitempty,oneof=admin seller"`
	IsActive   *bool        `json:"is_active"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in,omitempty"`
	User        *models.User `json:"user"`
}

type TokenInfoResponse struct {
	ExpiresIn int64 `json:"expires_in"`
}

type CreateClientRequest struct {
	NationalID string `json:"national_id" validate:"required"`
	Name       string `json:"name"        validate:"required"`
	Phone      string `json:"phone"`
	Email      string `json:"email"       validate:"omitempty,email"`
}

type PatchClientRequest struct {
	NationalID *string `json:"national_id" validate:"omitempty,min=1"`
	Name       *string `json:"name"        validate:"omitempty,min=1"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"       validate:"omitempty,email"`
}

type CreatePrescriptionRequest struct {
	ClientNationalID  string                  `json:"client_national_id" validate:"required"`
	ClientName        string                  `json:"client_name"        validate:"required"`
	ClientPhone       string                  `json:"client_phone"`
	Type              models.PrescriptionType `json:"type"               validate:"required,oneof=distance near"`
	RightEye          *models.EyeData         `json:"right_eye"`
	LeftEye           *models.EyeData         `json:"left_eye"`
	PupillaryDistance string                  `json:"pupillary_distance"`
	Notes             string                  `json:"notes"`
}

type PatchPrescriptionRequest struct {
	ClientName        *string         `json:"client_name" validate:"omitempty,min=1"`
	ClientPhone       *string         `json:"client_phone"`
	RightEye          *models.EyeData `json:"right_eye"`
	LeftEye           *models.EyeData `json:"left_eye"`
	PupillaryDistance *string         `json:"pupillary_distance"`
	Notes             *string         `json:"notes"`
}

type PrescriptionResult struct {
	Prescription *models.Prescription `json:"prescription"`
	IsNew        bool                 `json:"is_new"`
	Message      string               `json:"message,omitempty"`
}

type CustomerInput struct {
	Name       string `json:"name"        validate:"required"`
	NationalID string `json:"national_id" validate:"required"`
	Phone      string `json:"phone"`
}

type PurchaseInput struct {
	Total         int64                `json:"total"          validate:"gte=0"`
	Deposit       int64                `json:"deposit"        validate:"gte=0"`
	Balance       *int64               `json:"balance"        validate:"omitempty,gte=0"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash transfer card"`
	DeliveryDate  *time.Time           `json:"delivery_date"`
}

type CreateWorkOrderRequest struct {
	ManualOrderNumber string                   `json:"manual_order_number" validate:"omitempty,max=32"`
	OrderNumberScheme models.OrderNumberScheme `json:"order_number_scheme" validate:"omitempty,oneof=tu_vision opticolors optiva_vr"`
	OrderType         models.OrderType         `json:"order_type"          validate:"required,oneof=frame lenses full"`
	Customer          CustomerInput            `json:"customer"`
	PrescriptionID    *uuid.UUID               `json:"prescription_id"`
	Lens              *models.LensSnapshot     `json:"lens"`
	Purchase          PurchaseInput            `json:"purchase"`
	SaleDate          *time.Time               `json:"sale_date"`
	Notes             string                   `json:"notes"`
}

type PatchWorkOrderRequest struct {
	ManualOrderNumber *string                   `json:"manual_order_number" validate:"omitempty,max=32"`
	OrderNumberScheme *models.OrderNumberScheme `json:"order_number_scheme" validate:"omitempty,oneof=tu_vision opticolors optiva_vr"`
	OrderType         *models.OrderType         `json:"order_type"          validate:"omitempty,oneof=frame lenses full"`
	Customer          *CustomerInput            `json:"customer"`
	PrescriptionID    *uuid.UUID                `json:"prescription_id"`
	Lens              *models.LensSnapshot      `json:"lens"`
	Purchase          *PurchaseInput            `json:"purchase"`
	SaleDate          *time.Time                `json:"sale_date"`
	Notes             *string                   `json:"notes"`
}
