package service

import (
	"context"
	"time"

	"kidphoto/internal/model"
	"kidphoto/pkg/payment"

	"github.com/shopspring/decimal"
)

// OrderRepository 订单存储接口。Transition 是唯一的状态写入口，
// 仅当订单当前满足 guard 时才写入 update，返回是否写入成功。
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error)
	GetByIdempotencyKey(ctx context.Context, ownerID uint64, key string) (*model.Order, error)
	Transition(ctx context.Context, id uint64, guard model.OrderGuard, update model.OrderUpdate) (bool, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)
	ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
	SetStudentID(ctx context.Context, orderID uint64, studentID string) error
	MaxStudentSeq(ctx context.Context, year int) (int, error)
}

// HistoryRepository 历史记录存储，只允许追加
type HistoryRepository interface {
	Append(ctx context.Context, record *model.HistoryRecord) error
	// ListByOrder rejectType 为空时返回全部记录
	ListByOrder(ctx context.Context, orderID uint64, rejectType model.RejectType) ([]model.HistoryRecord, error)
}

// StudentRepository 学生档案存储
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByStudentID(ctx context.Context, studentID string) (*model.Student, error)
	GetByOwnerAndName(ctx context.Context, ownerID uint64, name string) (*model.Student, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Student, error)
	MaxSeq(ctx context.Context, year int) (int, error)
	// NextSeq 原子分配某年份的下一个序号，结果大于 floor
	NextSeq(ctx context.Context, year, floor int) (int, error)
	UpdateProfile(ctx context.Context, studentID, name, guardianContact string, now time.Time) error
	// OverrideCertificate 在同一事务内更新档案证件照、生活照末项和来源订单首图
	OverrideCertificate(ctx context.Context, studentID, photo string, now time.Time) error
}

// ActivityRepository 活动目录
type ActivityRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Activity, error)
	List(ctx context.Context, activeOnly bool) ([]model.Activity, error)
	Create(ctx context.Context, activity *model.Activity) error
	UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) error
}

// PhotographerRepository 摄影师
type PhotographerRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Photographer, error)
}

// UserRepository 用户
type UserRepository interface {
	GetByToken(ctx context.Context, token string) (*model.User, error)
}

// CreationLocker 下单防重锁
type CreationLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CredentialCache 支付参数缓存，未命中返回 nil, nil
type CredentialCache interface {
	Get(ctx context.Context, orderNo string) (*payment.Credentials, error)
	Set(ctx context.Context, orderNo string, creds *payment.Credentials, ttl time.Duration) error
}

// PaymentGateway 支付通道
type PaymentGateway interface {
	Prepay(ctx context.Context, req payment.PrepayRequest) (*payment.Credentials, error)
	VerifyNotify(body []byte, timestamp, nonce, signature string) error
}

// EventBus 订单事件投递
type EventBus interface {
	Publish(ctx context.Context, event Event) error
}
