package repository

import (
	"context"
	"fmt"
	"time"

	"kidphoto/internal/model"

	"github.com/jmoiron/sqlx"
)

// StudentRepository 学生档案存储库
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository 创建学生档案存储库
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create 创建学生档案，学号或(家长,姓名)冲突时返回 *DuplicateError
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (
			student_id, year, seq, owner_id, name, guardian_contact,
			certificate_photo, life_photos, source_order_id, created_at, updated_at
		) VALUES (
			:student_id, :year, :seq, :owner_id, :name, :guardian_contact,
			:certificate_photo, :life_photos, :source_order_id, :created_at, :updated_at
		)
	`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return translate(err, KeyStudentID, KeyStudentOwnerName)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	student.ID = uint64(id)
	return nil
}

// GetByStudentID 根据学号获取档案
func (r *StudentRepository) GetByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	var s model.Student
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM students WHERE student_id = ?`, studentID); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// GetByOwnerAndName 根据家长和孩子姓名获取档案
func (r *StudentRepository) GetByOwnerAndName(ctx context.Context, ownerID uint64, name string) (*model.Student, error) {
	var s model.Student
	query := `SELECT * FROM students WHERE owner_id = ? AND name = ?`
	if err := r.db.GetContext(ctx, &s, query, ownerID, name); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// ListByOwner 获取家长名下的所有档案
func (r *StudentRepository) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Student, error) {
	students := []model.Student{}
	query := `SELECT * FROM students WHERE owner_id = ? ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &students, query, ownerID); err != nil {
		return nil, err
	}
	return students, nil
}

// MaxSeq 某年份已分配的最大序号，没有时返回0
func (r *StudentRepository) MaxSeq(ctx context.Context, year int) (int, error) {
	var max int
	err := r.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(seq), 0) FROM students WHERE year = ?`, year)
	return max, err
}

// NextSeq 通过每年一行的计数器原子地分配下一个序号，结果不小于 floor+1
func (r *StudentRepository) NextSeq(ctx context.Context, year, floor int) (int, error) {
	ensure := `INSERT INTO student_sequences (year, seq) VALUES (?, 0) ON DUPLICATE KEY UPDATE year = year`
	if _, err := r.db.ExecContext(ctx, ensure, year); err != nil {
		return 0, fmt.Errorf("初始化学号计数器失败: %w", err)
	}
	// 行锁串行化并发分配，LAST_INSERT_ID(expr) 把新值带回 OK 包
	res, err := r.db.ExecContext(ctx,
		`UPDATE student_sequences SET seq = LAST_INSERT_ID(GREATEST(seq, ?) + 1) WHERE year = ?`, floor, year)
	if err != nil {
		return 0, fmt.Errorf("分配学号失败: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(seq), nil
}

// UpdateProfile 更新档案基本信息
func (r *StudentRepository) UpdateProfile(ctx context.Context, studentID, name, guardianContact string, now time.Time) error {
	query := `UPDATE students SET name = ?, guardian_contact = ?, updated_at = ? WHERE student_id = ?`
	res, err := r.db.ExecContext(ctx, query, name, guardianContact, now, studentID)
	if err != nil {
		return translate(err, KeyStudentOwnerName)
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

// OverrideCertificate 替换证件照：档案证件照、生活照中追加的证件照、来源订单的首张照片
func (r *StudentRepository) OverrideCertificate(ctx context.Context, studentID, photo string, now time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var s model.Student
	if err = tx.GetContext(ctx, &s, `SELECT * FROM students WHERE student_id = ? FOR UPDATE`, studentID); err != nil {
		return translate(err)
	}

	lifePhotos := ReplaceCertificate(s.LifePhotos, s.CertificatePhoto, photo)
	query := `UPDATE students SET certificate_photo = ?, life_photos = ?, updated_at = ? WHERE id = ?`
	if _, err = tx.ExecContext(ctx, query, photo, lifePhotos, now, s.ID); err != nil {
		return err
	}

	var photos model.StringList
	if err = tx.GetContext(ctx, &photos, `SELECT photos FROM orders WHERE id = ? FOR UPDATE`, s.SourceOrderID); err != nil {
		return fmt.Errorf("读取来源订单失败: %w", translate(err))
	}
	photos = photos.Clone()
	if len(photos) == 0 {
		photos = model.StringList{photo}
	} else {
		photos[0] = photo
	}
	if _, err = tx.ExecContext(ctx, `UPDATE orders SET photos = ?, updated_at = ? WHERE id = ?`, photos, now, s.SourceOrderID); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceCertificate 替换生活照末尾追加的证件照，末项不是旧证件照时追加
func ReplaceCertificate(lifePhotos model.StringList, oldPhoto, newPhoto string) model.StringList {
	out := lifePhotos.Clone()
	if n := len(out); n > 0 && out[n-1] == oldPhoto {
		out[n-1] = newPhoto
		return out
	}
	return append(out, newPhoto)
}
