package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// 唯一索引名
const (
	KeyOrderNo          = "ux_orders_order_no"
	KeyOrderIdempotency = "ux_orders_owner_idem"
	KeyStudentID        = "ux_students_student_id"
	KeyStudentOwnerName = "ux_students_owner_name"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 唯一索引冲突
	ErrDuplicate = errors.New("duplicate key")
)

// DuplicateError 唯一索引冲突，Key 为冲突的索引名
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return "duplicate key: " + e.Key
}

// Is 使 errors.Is(err, ErrDuplicate) 成立
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsDuplicateKey 判断是否为指定索引的冲突，key 为空时匹配任意索引
func IsDuplicateKey(err error, key string) bool {
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		return false
	}
	return key == "" || dup.Key == key
}

const mysqlErrDupEntry = 1062

// translate 把驱动错误转换为存储层错误
func translate(err error, keys ...string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDupEntry {
		// MySQL 8 的消息形如: Duplicate entry 'x' for key 'students.ux_students_student_id'
		for _, k := range keys {
			if strings.Contains(me.Message, k) {
				return &DuplicateError{Key: k}
			}
		}
		return &DuplicateError{}
	}
	return err
}
