package shorturl

import (
	"regexp"
)

// urlPattern 匹配消息中的绝对 HTTP(S) URL, 不允许包含空白字符
var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs 按出现顺序提取消息中的所有 URL, 重复出现的 URL 不去重
// 没有 URL 时返回空切片
func ExtractURLs(message string) []string {
	return urlPattern.FindAllString(message, -1)
}
