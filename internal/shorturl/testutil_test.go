package shorturl

import (
	"fmt"
	"sync/atomic"
	"testing"

	"sms-campaign-platform/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

// setupTestDB 初始化一个独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// 每个测试使用独立的共享缓存内存库, 避免连接池拿到空库
	dsn := fmt.Sprintf("file:shorturl_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("无法连接到内存数据库: %v", err)
	}

	if err := db.AutoMigrate(&model.ShortURL{}, &model.ClickEvent{}, &model.SendRecord{}, &model.Campaign{}, &model.Contact{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func testLogger() *zap.SugaredLogger {
	logger, _ := zap.NewDevelopment()
	return logger.Sugar()
}
