package model

import "time"

// HistoryRecord 一次“提交-驳回”的历史快照，写入后不可修改
type HistoryRecord struct {
	ID           uint64     `db:"id" json:"id"`
	OrderID      uint64     `db:"order_id" json:"order_id"`
	Photos       StringList `db:"photos" json:"photos"`
	RejectType   RejectType `db:"reject_type" json:"reject_type"`
	RejectReason string     `db:"reject_reason" json:"reject_reason"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	RejectedAt   time.Time  `db:"rejected_at" json:"rejected_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
