package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kidphoto/internal/model"

	"github.com/jmoiron/sqlx"
)

// OrderRepository 订单存储库
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository 创建订单存储库
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单，成功后回填ID
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			order_no, owner_id, photographer_id, activity_id, activity_name, category,
			identity_photo, child_name, guardian_name, guardian_phone, remark, locked_price,
			payment_status, status, photos, life_photos, photographer_note, reject_reason,
			reject_type, reject_count, student_id, trade_no, idempotency_key, created_at, updated_at
		) VALUES (
			:order_no, :owner_id, :photographer_id, :activity_id, :activity_name, :category,
			:identity_photo, :child_name, :guardian_name, :guardian_phone, :remark, :locked_price,
			:payment_status, :status, :photos, :life_photos, :photographer_note, :reject_reason,
			:reject_type, :reject_count, :student_id, :trade_no, :idempotency_key, :created_at, :updated_at
		)
	`
	res, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return translate(err, KeyOrderNo, KeyOrderIdempotency)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

// GetByID 根据ID获取订单
func (r *OrderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = ?`, id); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE order_no = ?`, orderNo); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// GetByIdempotencyKey 根据幂等键获取订单
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, ownerID uint64, key string) (*model.Order, error) {
	var order model.Order
	query := `SELECT * FROM orders WHERE owner_id = ? AND idempotency_key = ?`
	if err := r.db.GetContext(ctx, &order, query, ownerID, key); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// Transition 条件更新：WHERE 子句带上期望的状态，受影响行数为0说明已被其他请求改变
func (r *OrderRepository) Transition(ctx context.Context, id uint64, guard model.OrderGuard, update model.OrderUpdate) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{update.UpdatedAt}
	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Status != "" {
		set("status", update.Status)
	}
	if update.PaymentStatus != nil {
		set("payment_status", *update.PaymentStatus)
	}
	if update.Photos != nil {
		set("photos", *update.Photos)
	}
	if update.PhotographerNote != nil {
		set("photographer_note", *update.PhotographerNote)
	}
	if update.RejectReason != nil {
		set("reject_reason", *update.RejectReason)
	}
	if update.RejectType != nil {
		set("reject_type", *update.RejectType)
	}
	if update.RejectCount != nil {
		set("reject_count", *update.RejectCount)
	}
	if update.TradeNo != nil {
		set("trade_no", *update.TradeNo)
	}
	setTime := func(column string, t *time.Time) {
		if t != nil {
			set(column, *t)
		}
	}
	setTime("paid_at", update.PaidAt)
	setTime("submitted_at", update.SubmittedAt)
	setTime("reviewed_at", update.ReviewedAt)
	setTime("confirmed_at", update.ConfirmedAt)
	setTime("rejected_at", update.RejectedAt)
	setTime("cancelled_at", update.CancelledAt)
	setTime("escalated_at", update.EscalatedAt)
	setTime("resumed_at", update.ResumedAt)
	setTime("refunded_at", update.RefundedAt)

	where := []string{"id = ?", "status = ?"}
	args = append(args, id, guard.Status)
	if guard.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, guard.PaymentStatus)
	}
	if guard.RejectCount != nil {
		where = append(where, "reject_count = ?")
		args = append(args, *guard.RejectCount)
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE %s", strings.Join(sets, ", "), strings.Join(where, " AND "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List 分页查询订单
func (r *OrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var where []string
	var args []interface{}
	if filter.OwnerID != 0 {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.PhotographerID != 0 {
		where = append(where, "photographer_id = ?")
		args = append(args, filter.PhotographerID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	// 先获取总记录数
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+cond, args...); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Order{}, 0, nil
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	orders := []model.Order{}
	query := "SELECT * FROM orders" + cond + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	if err := r.db.SelectContext(ctx, &orders, query, append(args, pageSize, (page-1)*pageSize)...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListExpiredPending 获取创建时间早于 createdBefore 的待支付订单
func (r *OrderRepository) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	orders := []model.Order{}
	query := `
		SELECT * FROM orders
		WHERE status = ? AND payment_status = ? AND created_at < ?
		ORDER BY created_at
		LIMIT ?
	`
	err := r.db.SelectContext(ctx, &orders, query, model.StatusPendingPayment, model.PaymentUnpaid, createdBefore, limit)
	return orders, err
}

// SetStudentID 回写学号
func (r *OrderRepository) SetStudentID(ctx context.Context, orderID uint64, studentID string) error {
	query := `UPDATE orders SET student_id = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, studentID, time.Now(), orderID)
	return err
}

// MaxStudentSeq 订单上已回写的某年份学号的最大序号
func (r *OrderRepository) MaxStudentSeq(ctx context.Context, year int) (int, error) {
	var ids []string
	query := `SELECT student_id FROM orders WHERE student_id LIKE ?`
	if err := r.db.SelectContext(ctx, &ids, query, fmt.Sprintf("%d%%", year)); err != nil {
		return 0, err
	}
	max := 0
	for _, id := range ids {
		if seq, ok := model.ParseStudentSeq(id, year); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
