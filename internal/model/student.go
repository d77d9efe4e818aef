package model

import (
	"fmt"
	"strconv"
	"time"
)

// Student 学生档案
type Student struct {
	ID               uint64     `db:"id" json:"id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	Year             int        `db:"year" json:"year"`
	Seq              int        `db:"seq" json:"seq"`
	OwnerID          uint64     `db:"owner_id" json:"owner_id"`
	Name             string     `db:"name" json:"name"`
	GuardianContact  string     `db:"guardian_contact" json:"guardian_contact"`
	CertificatePhoto string     `db:"certificate_photo" json:"certificate_photo"`
	LifePhotos       StringList `db:"life_photos" json:"life_photos"`
	SourceOrderID    uint64     `db:"source_order_id" json:"source_order_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// FormatStudentID 学号格式：年份 + 4位序号
func FormatStudentID(year, seq int) string {
	return fmt.Sprintf("%d%04d", year, seq)
}

// ParseStudentSeq 解析学号中的序号，年份不匹配时返回 false
func ParseStudentSeq(studentID string, year int) (int, bool) {
	prefix := fmt.Sprintf("%d", year)
	if len(studentID) <= len(prefix) || studentID[:len(prefix)] != prefix {
		return 0, false
	}
	seq, err := strconv.Atoi(studentID[len(prefix):])
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
