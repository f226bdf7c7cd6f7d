package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrescriptionType string

const (
	PrescriptionDistance PrescriptionType = "distance"
	PrescriptionNear     PrescriptionType = "near"
)

func (t PrescriptionType) Valid() bool {
	return t == PrescriptionDistance || t == PrescriptionNear
}

// EyeData holds one eye's readings. Values are kept exactly as entered.
type EyeData struct {
	Sphere   string `json:"sphere"`
	Cylinder string `json:"cylinder"`
	Axis     string `json:"axis"`
	Addition string `json:"addition"`
}

type Prescription struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"                       json:"id"`
	ClientNationalID  string           `gorm:"not null;index:idx_prescription_key,priority:1" json:"client_national_id"`
	ClientName        string           `gorm:"not null"                                   json:"client_name"`
	ClientPhone       string           `                                                  json:"client_phone,omitempty"`
	Type              PrescriptionType `gorm:"not null;index:idx_prescription_key,priority:2" json:"type"`
	RightEye          EyeData          `gorm:"embedded;embeddedPrefix:right_"             json:"right_eye"`
	LeftEye           EyeData          `gorm:"embedded;embeddedPrefix:left_"              json:"left_eye"`
	PupillaryDistance string           `                                                  json:"pupillary_distance"`
	Notes             string           `                                                  json:"notes,omitempty"`
	Seq               int64            `gorm:"not null"                                   json:"-"`
	CreatedByID       uuid.UUID        `gorm:"type:uuid;index"                            json:"created_by_id"`
	Creator           *User            `gorm:"foreignKey:CreatedByID"                     json:"creator,omitempty"`
	UpdatedByID       *uuid.UUID       `gorm:"type:uuid"                                  json:"updated_by_id,omitempty"`
	Updater           *User            `gorm:"foreignKey:UpdatedByID"                     json:"updater,omitempty"`
	CreatedAt         time.Time        `gorm:"index"                                      json:"created_at"`
	UpdatedAt         time.Time        `                                                  json:"updated_at"`
}

func (p *Prescription) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SameReadings reports whether both eyes and the pupillary distance match field by field.
func (p Prescription) SameReadings(o Prescription) bool {
	return p.RightEye == o.RightEye &&
		p.LeftEye == o.LeftEye &&
		p.PupillaryDistance == o.PupillaryDistance
}

// PrescriptionHead is the per (client, type) version row that serialises writers.
type PrescriptionHead struct {
	ClientNationalID string           `gorm:"primaryKey"`
	Type             PrescriptionType `gorm:"primaryKey"`
	Version          int64            `gorm:"not null"`
}
