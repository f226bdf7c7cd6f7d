package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/optica/internal/models"
)

const workOrderCounter = "work_orders"

// NextOrderNumber increments and returns the work order counter. Call it inside the
// transaction that inserts the order so a failed insert gives the number back.
func (r *GormRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	db := r.DB.WithContext(ctx)

	bump := func() (int64, error) {
		res := db.Model(&models.Counter{}).
			Where("name = ?", workOrderCounter).
			UpdateColumn("value", gorm.Expr("value + ?", 1))
		return res.RowsAffected, res.Error
	}

	n, err := bump()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		var highest int64
		if err := db.Model(&models.WorkOrder{}).Select("COALESCE(MAX(order_number), 0)").Scan(&highest).Error; err != nil {
			return 0, err
		}
		seed := models.Counter{Name: workOrderCounter, Value: highest}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return 0, err
		}
		if _, err := bump(); err != nil {
			return 0, err
		}
	}

	var c models.Counter
	if err := db.Where("name = ?", workOrderCounter).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (r *GormRepo) CreateWorkOrder(ctx context.Context, w *models.WorkOrder) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(w).Error
}

func (r *GormRepo) GetWorkOrder(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	var w models.WorkOrder
	if err := r.withAuthors(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *GormRepo) GetWorkOrderByNumber(ctx context.Context, number int64) (*models.WorkOrder, error) {
	var w models.WorkOrder
	if err := r.withAuthors(ctx).Where("order_number = ?", number).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *GormRepo) ListWorkOrders(ctx context.Context, nationalID string) ([]models.WorkOrder, error) {
	q := r.withAuthors(ctx)
	if nationalID != "" {
		q = q.Where("customer_national_id = ?", nationalID)
	}
	var out []models.WorkOrder
	if err := q.Order("order_number DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) SaveWorkOrder(ctx context.Context, w *models.WorkOrder) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations, "order_number").Save(w).Error
}

func (r *GormRepo) DeleteWorkOrder(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.WorkOrder{}))
}
