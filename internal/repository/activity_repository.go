package repository

import (
	"context"

	"kidphoto/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ActivityRepository 拍摄活动存储库
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository 创建活动存储库
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetByID 根据ID获取活动
func (r *ActivityRepository) GetByID(ctx context.Context, id uint64) (*model.Activity, error) {
	var activity model.Activity
	if err := r.db.GetContext(ctx, &activity, `SELECT * FROM activities WHERE id = ?`, id); err != nil {
		return nil, translate(err)
	}
	return &activity, nil
}

// List 获取活动列表
func (r *ActivityRepository) List(ctx context.Context, activeOnly bool) ([]model.Activity, error) {
	activities := []model.Activity{}
	query := `SELECT * FROM activities`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`
	err := r.db.SelectContext(ctx, &activities, query)
	return activities, err
}

// Create 创建活动
func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	query := `
		INSERT INTO activities (name, description, category, identity_photo, price, is_active, created_at, updated_at)
		VALUES (:name, :description, :category, :identity_photo, :price, :is_active, :created_at, :updated_at)
	`
	res, err := r.db.NamedExecContext(ctx, query, activity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	activity.ID = uint64(id)
	return nil
}

// UpdatePrice 修改活动价格，已创建的订单不受影响
func (r *ActivityRepository) UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE activities SET price = ?, updated_at = CURRENT_TIMESTAMP(3) WHERE id = ?`, price, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PhotographerRepository 摄影师存储库
type PhotographerRepository struct {
	db *sqlx.DB
}

// NewPhotographerRepository 创建摄影师存储库
func NewPhotographerRepository(db *sqlx.DB) *PhotographerRepository {
	return &PhotographerRepository{db: db}
}

// GetByID 根据ID获取摄影师
func (r *PhotographerRepository) GetByID(ctx context.Context, id uint64) (*model.Photographer, error) {
	var p model.Photographer
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM photographers WHERE id = ?`, id); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}
