package repository

import (
	"context"

	"kidphoto/internal/model"

	"github.com/jmoiron/sqlx"
)

// HistoryRepository 提交-驳回历史存储库，只提供追加和查询
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository 创建历史存储库
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append 追加一条历史记录
func (r *HistoryRepository) Append(ctx context.Context, record *model.HistoryRecord) error {
	query := `
		INSERT INTO order_histories (
			order_id, photos, reject_type, reject_reason, submitted_at, rejected_at, created_at
		) VALUES (
			:order_id, :photos, :reject_type, :reject_reason, :submitted_at, :rejected_at, :created_at
		)
	`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

// ListByOrder 按驳回时间倒序获取订单的历史记录，rejectType 为空时不过滤
func (r *HistoryRepository) ListByOrder(ctx context.Context, orderID uint64, rejectType model.RejectType) ([]model.HistoryRecord, error) {
	records := []model.HistoryRecord{}
	query := `SELECT * FROM order_histories WHERE order_id = ?`
	args := []interface{}{orderID}
	if rejectType != model.RejectNone {
		query += ` AND reject_type = ?`
		args = append(args, rejectType)
	}
	query += ` ORDER BY rejected_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}
