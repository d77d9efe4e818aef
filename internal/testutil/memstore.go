// Package testutil 提供内存实现的存储与外部依赖，语义与 MySQL/Redis 实现一致：
// 条件更新、唯一索引冲突和只追加的历史记录。
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"kidphoto/internal/model"
	"kidphoto/internal/repository"

	"github.com/shopspring/decimal"
)

// Store 内存存储
type Store struct {
	mu sync.Mutex

	orders        map[uint64]*model.Order
	histories     []model.HistoryRecord
	students      map[string]*model.Student
	activities    map[uint64]*model.Activity
	photographers map[uint64]*model.Photographer
	users         map[string]*model.User
	sequences     map[int]int

	nextOrderID   uint64
	nextHistoryID uint64
	nextStudentID uint64
	nextID        uint64

	// TransitionHook 在条件更新比较前调用，测试用来制造并发竞争
	TransitionHook func(id uint64)
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		orders:        make(map[uint64]*model.Order),
		students:      make(map[string]*model.Student),
		activities:    make(map[uint64]*model.Activity),
		photographers: make(map[uint64]*model.Photographer),
		users:         make(map[string]*model.User),
		sequences:     make(map[int]int),
	}
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Photos = o.Photos.Clone()
	c.LifePhotos = o.LifePhotos.Clone()
	return &c
}

func cloneStudent(s *model.Student) *model.Student {
	c := *s
	c.LifePhotos = s.LifePhotos.Clone()
	return &c
}

// Orders 订单存储
func (s *Store) Orders() *OrderStore { return &OrderStore{s} }

// Histories 历史存储
func (s *Store) Histories() *HistoryStore { return &HistoryStore{s} }

// Students 档案存储
func (s *Store) Students() *StudentStore { return &StudentStore{s} }

// Activities 活动存储
func (s *Store) Activities() *ActivityStore { return &ActivityStore{s} }

// Photographers 摄影师存储
func (s *Store) Photographers() *PhotographerStore { return &PhotographerStore{s} }

// Users 用户存储
func (s *Store) Users() *UserStore { return &UserStore{s} }

// OrderStore 订单存储
type OrderStore struct{ s *Store }

func (r *OrderStore) Create(ctx context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.OrderNo == order.OrderNo {
			return &repository.DuplicateError{Key: repository.KeyOrderNo}
		}
		if order.IdempotencyKey.Valid && o.OwnerID == order.OwnerID &&
			o.IdempotencyKey.Valid && o.IdempotencyKey.String == order.IdempotencyKey.String {
			return &repository.DuplicateError{Key: repository.KeyOrderIdempotency}
		}
	}
	r.s.nextOrderID++
	order.ID = r.s.nextOrderID
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderStore) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderStore) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	return r.find(func(o *model.Order) bool { return o.OrderNo == orderNo })
}

func (r *OrderStore) GetByIdempotencyKey(ctx context.Context, ownerID uint64, key string) (*model.Order, error) {
	return r.find(func(o *model.Order) bool {
		return o.OwnerID == ownerID && o.IdempotencyKey.Valid && o.IdempotencyKey.String == key
	})
}

func (r *OrderStore) find(match func(*model.Order) bool) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if match(o) {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *OrderStore) Transition(ctx context.Context, id uint64, guard model.OrderGuard, update model.OrderUpdate) (bool, error) {
	if r.s.TransitionHook != nil {
		r.s.TransitionHook(id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || !guard.Matches(o) {
		return false, nil
	}
	update.Apply(o)
	return true, nil
}

func (r *OrderStore) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []model.Order
	for _, o := range r.s.orders {
		if filter.OwnerID != 0 && o.OwnerID != filter.OwnerID {
			continue
		}
		if filter.PhotographerID != 0 && o.PhotographerID != filter.PhotographerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, *cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []model.Order{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *OrderStore) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Order{}
	for _, o := range r.s.orders {
		if o.Status == model.StatusPendingPayment && o.PaymentStatus == model.PaymentUnpaid && o.CreatedAt.Before(createdBefore) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderStore) SetStudentID(ctx context.Context, orderID uint64, studentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.StudentID.String = studentID
	o.StudentID.Valid = true
	return nil
}

func (r *OrderStore) MaxStudentSeq(ctx context.Context, year int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, o := range r.s.orders {
		if !o.StudentID.Valid {
			continue
		}
		if seq, ok := model.ParseStudentSeq(o.StudentID.String, year); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}

// Put 直接写入订单，测试用来构造任意状态
func (r *OrderStore) Put(order *model.Order) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if order.ID == 0 {
		r.s.nextOrderID++
		order.ID = r.s.nextOrderID
	} else if order.ID > r.s.nextOrderID {
		r.s.nextOrderID = order.ID
	}
	r.s.orders[order.ID] = cloneOrder(order)
}

// HistoryStore 历史存储，没有修改和删除
type HistoryStore struct{ s *Store }

func (r *HistoryStore) Append(ctx context.Context, record *model.HistoryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextHistoryID++
	record.ID = r.s.nextHistoryID
	c := *record
	c.Photos = record.Photos.Clone()
	r.s.histories = append(r.s.histories, c)
	return nil
}

func (r *HistoryStore) ListByOrder(ctx context.Context, orderID uint64, rejectType model.RejectType) ([]model.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.HistoryRecord{}
	for i := len(r.s.histories) - 1; i >= 0; i-- {
		h := r.s.histories[i]
		if h.OrderID != orderID {
			continue
		}
		if rejectType != model.RejectNone && h.RejectType != rejectType {
			continue
		}
		h.Photos = h.Photos.Clone()
		out = append(out, h)
	}
	return out, nil
}

// StudentStore 档案存储
type StudentStore struct{ s *Store }

func (r *StudentStore) Create(ctx context.Context, student *model.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[student.StudentID]; ok {
		return &repository.DuplicateError{Key: repository.KeyStudentID}
	}
	for _, st := range r.s.students {
		if st.OwnerID == student.OwnerID && st.Name == student.Name {
			return &repository.DuplicateError{Key: repository.KeyStudentOwnerName}
		}
	}
	r.s.nextStudentID++
	student.ID = r.s.nextStudentID
	r.s.students[student.StudentID] = cloneStudent(student)
	return nil
}

func (r *StudentStore) GetByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[studentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneStudent(st), nil
}

func (r *StudentStore) GetByOwnerAndName(ctx context.Context, ownerID uint64, name string) (*model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if st.OwnerID == ownerID && st.Name == name {
			return cloneStudent(st), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *StudentStore) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Student{}
	for _, st := range r.s.students {
		if st.OwnerID == ownerID {
			out = append(out, *cloneStudent(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (r *StudentStore) MaxSeq(ctx context.Context, year int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, st := range r.s.students {
		if st.Year == year && st.Seq > max {
			max = st.Seq
		}
	}
	return max, nil
}

func (r *StudentStore) NextSeq(ctx context.Context, year, floor int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq := r.s.sequences[year]
	if floor > seq {
		seq = floor
	}
	seq++
	r.s.sequences[year] = seq
	return seq, nil
}

func (r *StudentStore) UpdateProfile(ctx context.Context, studentID, name, guardianContact string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.students {
		if id != studentID && other.OwnerID == st.OwnerID && other.Name == name {
			return &repository.DuplicateError{Key: repository.KeyStudentOwnerName}
		}
	}
	st.Name = name
	st.GuardianContact = guardianContact
	st.UpdatedAt = now
	return nil
}

func (r *StudentStore) OverrideCertificate(ctx context.Context, studentID, photo string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	o, ok := r.s.orders[st.SourceOrderID]
	if !ok {
		return repository.ErrNotFound
	}
	st.LifePhotos = repository.ReplaceCertificate(st.LifePhotos, st.CertificatePhoto, photo)
	st.CertificatePhoto = photo
	st.UpdatedAt = now
	if len(o.Photos) == 0 {
		o.Photos = model.StringList{photo}
	} else {
		o.Photos = o.Photos.Clone()
		o.Photos[0] = photo
	}
	o.UpdatedAt = now
	return nil
}

// ActivityStore 活动存储
type ActivityStore struct{ s *Store }

func (r *ActivityStore) GetByID(ctx context.Context, id uint64) (*model.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *ActivityStore) List(ctx context.Context, activeOnly bool) ([]model.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Activity{}
	for _, a := range r.s.activities {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ActivityStore) Create(ctx context.Context, activity *model.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	activity.ID = r.s.nextID
	c := *activity
	r.s.activities[c.ID] = &c
	return nil
}

func (r *ActivityStore) UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.activities[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Price = price
	return nil
}

// PhotographerStore 摄影师存储
type PhotographerStore struct{ s *Store }

func (r *PhotographerStore) GetByID(ctx context.Context, id uint64) (*model.Photographer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photographers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

// Put 写入摄影师
func (r *PhotographerStore) Put(p *model.Photographer) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == 0 {
		r.s.nextID++
		p.ID = r.s.nextID
	}
	c := *p
	r.s.photographers[p.ID] = &c
}

// UserStore 用户存储
type UserStore struct{ s *Store }

func (r *UserStore) GetByToken(ctx context.Context, token string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[strings.TrimSpace(token)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

// Put 写入用户
func (r *UserStore) Put(u *model.User) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == 0 {
		r.s.nextID++
		u.ID = r.s.nextID
	}
	c := *u
	r.s.users[u.Token] = &c
}
