package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleSeller }

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Name         string    `gorm:"not null"              json:"name"`
	NationalID   string    `                             json:"national_id,omitempty"`
	Role         Role      `gorm:"not null"              json:"role"`
	IsActive     bool      `gorm:"not null"              json:"is_active"`
	CreatedAt    time.Time `                             json:"created_at"`
	UpdatedAt    time.Time `                             json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Client struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"  json:"id"`
	NationalID  string     `gorm:"uniqueIndex;not null"  json:"national_id"`
	Name        string     `gorm:"not null"              json:"name"`
	Phone       string     `                             json:"phone,omitempty"`
	Email       string     `                             json:"email,omitempty"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;index"       json:"created_by_id"`
	Creator     *User      `gorm:"foreignKey:CreatedByID" json:"creator,omitempty"`
	UpdatedByID *uuid.UUID `gorm:"type:uuid"             json:"updated_by_id,omitempty"`
	Updater     *User      `gorm:"foreignKey:UpdatedByID" json:"updater,omitempty"`
	CreatedAt   time.Time  `gorm:"index"                 json:"created_at"`
	UpdatedAt   time.Time  `                             json:"updated_at"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// All lists every table the server migrates.
func All() []any {
	return []any{
		&User{},
		&Client{},
		&Prescription{},
		&PrescriptionHead{},
		&WorkOrder{},
		&Counter{},
	}
}
