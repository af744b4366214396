package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceVariables(t *testing.T) {
	tmpl := "{{name}}様、{{store}}のセールは明日までです"
	result := ReplaceVariables(tmpl, map[string]string{
		"name":  "山田",
		"store": "渋谷店",
	})
	assert.Equal(t, "山田様、渋谷店のセールは明日までです", result)
}

func TestReplaceVariables_UnknownKeptVerbatim(t *testing.T) {
	tmpl := "{{name}}様、クーポン: {{coupon}}"
	result := ReplaceVariables(tmpl, map[string]string{"name": "山田"})
	// 缺失的变量保留原样, 预览时一眼能看出来
	assert.Equal(t, "山田様、クーポン: {{coupon}}", result)
}

func TestReplaceVariables_WhitespaceInsideBraces(t *testing.T) {
	result := ReplaceVariables("hi {{ name }}", map[string]string{"name": "山田"})
	assert.Equal(t, "hi 山田", result)
}

func TestExtractVariables(t *testing.T) {
	tmpl := "{{name}}様、{{store}}で{{name}}様限定セール"
	assert.Equal(t, []string{"name", "store"}, ExtractVariables(tmpl))
}

func TestExtractVariables_None(t *testing.T) {
	assert.Empty(t, ExtractVariables("プレーンなお知らせ"))
}
