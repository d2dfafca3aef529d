package store

import (
	"gorm.io/gorm"
)

// Scope limits queries to one dormitory. The zero value sees every dormitory.
type Scope struct {
	DormitoryID *int64
}

// AllDormitories returns an unrestricted scope.
func AllDormitories() Scope { return Scope{} }

// ForDormitory returns a scope restricted to one dormitory.
func ForDormitory(id int64) Scope { return Scope{DormitoryID: &id} }

// Limited reports whether the scope restricts access.
func (s Scope) Limited() bool { return s.DormitoryID != nil }

// Allows reports whether rows of dormitoryID are visible in the scope.
func (s Scope) Allows(dormitoryID int64) bool {
	return !s.Limited() || *s.DormitoryID == dormitoryID
}

// byColumn filters on a dormitory_id column of the queried table.
func (s Scope) byColumn(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !s.Limited() {
			return db
		}
		return db.Where(column+" = ?", *s.DormitoryID)
	}
}

// byRoom filters rows that reference a room of the scoped dormitory.
func (s Scope) byRoom(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !s.Limited() {
			return db
		}
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("rooms").Select("id").Where("dormitory_id = ?", *s.DormitoryID)
		return db.Where(column+" IN (?)", sub)
	}
}

// byStudent filters rows that reference a student of the scoped dormitory.
func (s Scope) byStudent(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !s.Limited() {
			return db
		}
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("students").Select("id").Where("dormitory_id = ?", *s.DormitoryID)
		return db.Where(column+" IN (?)", sub)
	}
}

// notifications shows global notifications plus those of the scoped dormitory.
func (s Scope) notifications() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !s.Limited() {
			return db
		}
		return db.Where("dormitory_id IS NULL OR dormitory_id = ?", *s.DormitoryID)
	}
}
