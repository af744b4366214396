package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/shortcode"
	"sms-campaign-platform/internal/shorturl"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

// setupHandlerDB 初始化一个独立的内存数据库
func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
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

// setupRedirectTest 为重定向集成测试初始化一个干净的环境
func setupRedirectTest(t *testing.T) (*gin.Engine, *gorm.DB, *shorturl.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupHandlerDB(t)

	// 测试中不依赖 Redis, 传入 nil
	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()
	registry := shorturl.NewRegistry(db, nil, shortcode.NewGenerator(), sugar)
	recorder := shorturl.NewClickRecorder(db)
	redirectHandler := NewRedirectHandler(registry, recorder, sugar)

	router := gin.New()
	router.GET("/r/:code", redirectHandler.Redirect)
	return router, db, registry
}

func TestRedirect_KnownCode(t *testing.T) {
	router, db, registry := setupRedirectTest(t)

	row, err := registry.Create("https://example.com/sale", nil, nil)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/r/"+row.Code, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/sale", w.Header().Get("Location"))

	// 跳转的同时记录一次点击, 带上 UA 和第一跳 IP
	var events []model.ClickEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, row.ID, events[0].ShortURLID)
	require.NotNil(t, events[0].UserAgent)
	assert.Equal(t, "Mozilla/5.0", *events[0].UserAgent)
	require.NotNil(t, events[0].IPAddress)
	assert.Equal(t, "203.0.113.9", *events[0].IPAddress)
}

func TestRedirect_RepeatClicksEachRecorded(t *testing.T) {
	router, db, registry := setupRedirectTest(t)

	row, err := registry.Create("https://example.com/sale", nil, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/r/"+row.Code, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	}

	var count int64
	db.Model(&model.ClickEvent{}).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestRedirect_UnknownCode(t *testing.T) {
	router, db, _ := setupRedirectTest(t)

	req, _ := http.NewRequest(http.MethodGet, "/r/nosuchcode", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "链接不存在")

	// 未知短码不产生点击事件
	var count int64
	db.Model(&model.ClickEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestRedirect_ClickFailureDoesNotBlockRedirect(t *testing.T) {
	router, db, registry := setupRedirectTest(t)

	row, err := registry.Create("https://example.com/sale", nil, nil)
	require.NoError(t, err)

	// 点击表故障时重定向照常返回
	require.NoError(t, db.Migrator().DropTable(&model.ClickEvent{}))

	req, _ := http.NewRequest(http.MethodGet, "/r/"+row.Code, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/sale", w.Header().Get("Location"))
}
