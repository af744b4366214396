package shorturl

import (
	"errors"
	"testing"

	"sms-campaign-platform/internal/model"
	"sms-campaign-platform/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(setupTestDB(t), nil, shortcode.NewGenerator(), testLogger())
}

func TestRegistry_CreateAndResolve(t *testing.T) {
	registry := newTestRegistry(t)

	row, err := registry.Create("https://example.com/a", nil, nil)
	require.NoError(t, err)
	assert.Len(t, row.Code, shortcode.CodeLength)
	assert.Equal(t, "https://example.com/a", row.OriginalURL)
	assert.Nil(t, row.SendRecordID)

	// 重复解析始终返回同一个目标地址
	for i := 0; i < 3; i++ {
		resolved, err := registry.Resolve(row.Code)
		require.NoError(t, err)
		assert.Equal(t, row.ID, resolved.ID)
		assert.Equal(t, "https://example.com/a", resolved.OriginalURL)
	}
}

func TestRegistry_CodesAreUnique(t *testing.T) {
	registry := newTestRegistry(t)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		row, err := registry.Create("https://example.com/page", nil, nil)
		require.NoError(t, err)
		_, dup := seen[row.Code]
		assert.False(t, dup, "短码不允许重复: %s", row.Code)
		seen[row.Code] = struct{}{}
	}
}

func TestRegistry_ResolveNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Resolve("doesnotexist")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_LinkToSendRecord(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db, nil, shortcode.NewGenerator(), testLogger())

	row, err := registry.Create("https://example.com/a", nil, nil)
	require.NoError(t, err)

	record := model.SendRecord{PhoneNumber: "09011112222", Message: "hi", Status: model.SendStatusSuccess}
	require.NoError(t, db.Create(&record).Error)

	require.NoError(t, registry.LinkToSendRecord(row.ID, record.ID))

	resolved, err := registry.Resolve(row.Code)
	require.NoError(t, err)
	require.NotNil(t, resolved.SendRecordID)
	assert.Equal(t, record.ID, *resolved.SendRecordID)
}

func TestRegistry_CreateStorageFailure(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry(db, nil, shortcode.NewGenerator(), testLogger())

	// 模拟存储故障: 表被移除后所有插入尝试都失败
	require.NoError(t, db.Migrator().DropTable(&model.ShortURL{}))

	_, err := registry.Create("https://example.com/a", nil, nil)
	assert.Error(t, err)
}
