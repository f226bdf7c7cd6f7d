package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/optica/internal/models"
)

// ErrStaleHead means another writer moved the (client, type) head first.
var ErrStaleHead = errors.New("prescription head changed")

type PrescriptionFilter struct {
	NationalID string
	Name       string
	From       *time.Time
	To         *time.Time
}

const latestFirst = "created_at DESC, seq DESC"

// HeadVersion returns the current version of the (client, type) head, creating it at zero.
func (r *GormRepo) HeadVersion(ctx context.Context, nationalID string, typ models.PrescriptionType) (int64, error) {
	db := r.DB.WithContext(ctx)
	head := models.PrescriptionHead{ClientNationalID: nationalID, Type: typ}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&head).Error; err != nil {
		return 0, err
	}
	if err := db.Where("client_national_id = ? AND type = ?", nationalID, typ).First(&head).Error; err != nil {
		return 0, err
	}
	return head.Version, nil
}

// BumpHead advances the head from version to version+1 or fails with ErrStaleHead.
func (r *GormRepo) BumpHead(ctx context.Context, nationalID string, typ models.PrescriptionType, version int64) error {
	res := r.DB.WithContext(ctx).Model(&models.PrescriptionHead{}).
		Where("client_national_id = ? AND type = ? AND version = ?", nationalID, typ, version).
		UpdateColumn("version", version+1)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleHead
	}
	return nil
}

func (r *GormRepo) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

// TouchPrescription records a reconfirmation without changing any readings.
func (r *GormRepo) TouchPrescription(ctx context.Context, id, actor uuid.UUID) error {
	res := r.DB.WithContext(ctx).Model(&models.Prescription{}).
		Where("id = ?", id).
		Updates(map[string]any{"updated_by_id": actor})
	return affected(res)
}

func (r *GormRepo) GetPrescription(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var p models.Prescription
	if err := r.withAuthors(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestPrescription returns nil, nil when the client has no record of that type.
func (r *GormRepo) LatestPrescription(ctx context.Context, nationalID string, typ models.PrescriptionType) (*models.Prescription, error) {
	q := r.withAuthors(ctx).Where("client_national_id = ?", nationalID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var p models.Prescription
	err := q.Order(latestFirst).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListPrescriptions(ctx context.Context, nationalID string, typ models.PrescriptionType) ([]models.Prescription, error) {
	q := r.withAuthors(ctx)
	if nationalID != "" {
		q = q.Where("client_national_id = ?", nationalID)
	}
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var out []models.Prescription
	if err := q.Order(latestFirst).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) SearchPrescriptions(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	q := r.withAuthors(ctx).Model(&models.Prescription{})
	if f.NationalID != "" {
		q = q.Where("LOWER(client_national_id) LIKE ? ESCAPE '\\'", likePattern(f.NationalID))
	}
	if f.Name != "" {
		q = q.Where("LOWER(client_name) LIKE ? ESCAPE '\\'", likePattern(f.Name))
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", f.To.UTC())
	}
	var out []models.Prescription
	if err := q.Order(latestFirst).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) SavePrescription(ctx context.Context, p *models.Prescription) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *GormRepo) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Prescription{}))
}
