package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens an isolated in-memory sqlite database for tests. Each call
// gets its own named database; cache=shared keeps pooled connections on the
// same instance.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	// Single connection avoids SQLITE_BUSY under concurrent test writers.
	if sqlDB, err := dbConn.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return dbConn, nil
}
