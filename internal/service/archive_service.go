package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/pkg/logger"
)

// allocateAttempts 只在学号被计数器之外写入的档案占用时才会重试
const allocateAttempts = 5

// ArchiveService 学生档案服务
type ArchiveService struct {
	students StudentRepository
	orders   OrderRepository
	events   *EventDispatcher
	logger   *logger.Logger
	now      func() time.Time
}

// NewArchiveService 创建学生档案服务
func NewArchiveService(students StudentRepository, orders OrderRepository, events *EventDispatcher, logger *logger.Logger) *ArchiveService {
	return &ArchiveService{
		students: students,
		orders:   orders,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate 为已完成的证件照订单生成学生档案。
// 同一家长下同名孩子已有档案时不再生成，返回已有档案且 created 为 false。
func (s *ArchiveService) Generate(ctx context.Context, order *model.Order) (student *model.Student, created bool, err error) {
	existing, err := s.findExisting(ctx, order.OwnerID, order.ChildName)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logger.Info("学生档案已存在，跳过生成", "order_no", order.OrderNo, "student_id", existing.StudentID)
		s.backLink(ctx, order, existing.StudentID)
		return existing, false, nil
	}

	certificate, ok := model.CertificatePhotoFrom(order.Photos)
	if !ok {
		return nil, false, errors.New("订单缺少证件照，无法生成档案")
	}

	now := s.now()
	year := now.Year()
	lifePhotos := append(order.LifePhotos.Clone(), certificate)

	for attempt := 1; attempt <= allocateAttempts; attempt++ {
		seq, err := s.nextSeq(ctx, year)
		if err != nil {
			return nil, false, err
		}

		candidate := &model.Student{
			StudentID:        model.FormatStudentID(year, seq),
			Year:             year,
			Seq:              seq,
			OwnerID:          order.OwnerID,
			Name:             order.ChildName,
			GuardianContact:  order.GuardianPhone,
			CertificatePhoto: certificate,
			LifePhotos:       lifePhotos,
			SourceOrderID:    order.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		err = s.students.Create(ctx, candidate)
		switch {
		case err == nil:
			s.logger.Info("学生档案生成成功", "order_no", order.OrderNo, "student_id", candidate.StudentID, "attempt", attempt)
			s.backLink(ctx, order, candidate.StudentID)
			s.events.Dispatch(Event{
				Type:       EventStudentArchived,
				OrderID:    order.ID,
				OrderNo:    order.OrderNo,
				OwnerID:    order.OwnerID,
				Status:     order.Status,
				StudentID:  candidate.StudentID,
				OccurredAt: now,
			})
			return candidate, true, nil
		case repository.IsDuplicateKey(err, repository.KeyStudentOwnerName):
			// 并发确认同一孩子的另一笔订单已生成档案
			existing, err := s.findExisting(ctx, order.OwnerID, order.ChildName)
			if err != nil {
				return nil, false, err
			}
			if existing != nil {
				s.backLink(ctx, order, existing.StudentID)
			}
			return existing, false, nil
		case repository.IsDuplicateKey(err, repository.KeyStudentID):
			s.logger.Debug("学号冲突，重新分配", "student_id", candidate.StudentID, "attempt", attempt)
			continue
		default:
			return nil, false, fmt.Errorf("创建学生档案失败: %w", err)
		}
	}
	return nil, false, fmt.Errorf("学号分配失败，已重试%d次", allocateAttempts)
}

// nextSeq 当年下一个序号，由计数器原子分配，下限参考档案表和订单上回写的学号
func (s *ArchiveService) nextSeq(ctx context.Context, year int) (int, error) {
	fromStudents, err := s.students.MaxSeq(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("查询最大学号失败: %w", err)
	}
	fromOrders, err := s.orders.MaxStudentSeq(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("查询订单学号失败: %w", err)
	}
	floor := fromStudents
	if fromOrders > floor {
		floor = fromOrders
	}
	seq, err := s.students.NextSeq(ctx, year, floor)
	if err != nil {
		return 0, fmt.Errorf("分配学号失败: %w", err)
	}
	return seq, nil
}

func (s *ArchiveService) findExisting(ctx context.Context, ownerID uint64, name string) (*model.Student, error) {
	student, err := s.students.GetByOwnerAndName(ctx, ownerID, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询学生档案失败: %w", err)
	}
	return student, nil
}

func (s *ArchiveService) backLink(ctx context.Context, order *model.Order, studentID string) {
	if order.StudentID.Valid && order.StudentID.String == studentID {
		return
	}
	if err := s.orders.SetStudentID(ctx, order.ID, studentID); err != nil {
		s.logger.Error("回写订单学号失败", "order_no", order.OrderNo, "student_id", studentID, "error", err)
		return
	}
	order.StudentID.String = studentID
	order.StudentID.Valid = true
}

// GetStudent 根据学号获取档案
func (s *ArchiveService) GetStudent(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.students.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, constants.ErrStudentNotFound, "获取学生档案失败")
	}
	return student, nil
}

// ListStudents 获取家长名下的档案
func (s *ArchiveService) ListStudents(ctx context.Context, ownerID uint64) ([]model.Student, error) {
	students, err := s.students.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("查询学生档案失败: %w", err)
	}
	return students, nil
}

// UpdateProfile 家长修改档案信息，证件照不允许在此修改
func (s *ArchiveService) UpdateProfile(ctx context.Context, studentID string, ownerID uint64, name, guardianContact, certificatePhoto string) (*model.Student, error) {
	student, err := s.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.OwnerID != ownerID {
		return nil, newError(KindForbidden, constants.ErrInsufficientPermission)
	}
	if certificatePhoto = strings.TrimSpace(certificatePhoto); certificatePhoto != "" && certificatePhoto != student.CertificatePhoto {
		return nil, newError(KindForbidden, constants.ErrCertificateLocked)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = student.Name
	}
	guardianContact = strings.TrimSpace(guardianContact)
	if guardianContact == "" {
		guardianContact = student.GuardianContact
	}

	if err := s.students.UpdateProfile(ctx, studentID, name, guardianContact, s.now()); err != nil {
		if repository.IsDuplicateKey(err, repository.KeyStudentOwnerName) {
			return nil, newError(KindConflict, constants.ErrStudentNameExists)
		}
		return nil, notFoundOr(err, constants.ErrStudentNotFound, "更新学生档案失败")
	}
	return s.GetStudent(ctx, studentID)
}

// OverrideCertificatePhoto 管理员替换证件照，同步档案、生活照和来源订单
func (s *ArchiveService) OverrideCertificatePhoto(ctx context.Context, studentID, photo string) (*model.Student, error) {
	photo = strings.TrimSpace(photo)
	if photo == "" {
		return nil, newError(KindValidation, constants.ErrCertificateMissing)
	}
	if err := s.students.OverrideCertificate(ctx, studentID, photo, s.now()); err != nil {
		return nil, notFoundOr(err, constants.ErrStudentNotFound, "替换证件照失败")
	}
	s.logger.Info("证件照已替换", "student_id", studentID)
	return s.GetStudent(ctx, studentID)
}
