package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withRowLock 追加行级写锁。SQLite 不支持 FOR UPDATE 语法，
// 其写事务本身互斥，跳过锁子句不破坏串行化语义。
func withRowLock(db *gorm.DB) *gorm.DB {
	if db == nil {
		return db
	}
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
