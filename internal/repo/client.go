package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/optica/internal/models"
)

type ClientFilter struct {
	NationalID string
	Name       string
	Email      string
}

func (r *GormRepo) CreateClient(ctx context.Context, c *models.Client) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *GormRepo) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.withAuthors(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *GormRepo) GetClientByNationalID(ctx context.Context, nationalID string) (*models.Client, error) {
	var client models.Client
	if err := r.withAuthors(ctx).Where("national_id = ?", nationalID).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *GormRepo) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := r.withAuthors(ctx).Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// SearchClients matches any non-empty filter field as a case-insensitive substring.
func (r *GormRepo) SearchClients(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	var (
		conds []string
		args  []any
	)
	for col, v := range map[string]string{"national_id": f.NationalID, "name": f.Name, "email": f.Email} {
		if v == "" {
			continue
		}
		conds = append(conds, "LOWER("+col+") LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(v))
	}

	q := r.withAuthors(ctx).Model(&models.Client{})
	if len(conds) > 0 {
		q = q.Where(strings.Join(conds, " OR "), args...)
	}

	var clients []models.Client
	if err := q.Order("created_at DESC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// GetClientsByIDs keeps the order of ids.
func (r *GormRepo) GetClientsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Client, error) {
	if len(ids) == 0 {
		return []models.Client{}, nil
	}
	var found []models.Client
	if err := r.withAuthors(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Client, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.Client, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *GormRepo) SaveClient(ctx context.Context, c *models.Client) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

func (r *GormRepo) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Client{}))
}
