package repository

import (
	"context"

	"kidphoto/internal/model"

	"github.com/jmoiron/sqlx"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository 创建用户仓库实例
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (nickname, role, photographer_id, token, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP(3))`
	res, err := r.db.ExecContext(ctx, query, user.Nickname, user.Role, user.PhotographerID, user.Token)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	user := &model.User{}
	if err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// GetByToken 根据Token获取用户
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*model.User, error) {
	user := &model.User{}
	if err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE token = ?`, token); err != nil {
		return nil, translate(err)
	}
	return user, nil
}
