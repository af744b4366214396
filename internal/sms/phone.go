package sms

import (
	"regexp"
	"strings"
)

// mobilePattern 日本手机号: +81 + 70/80/90 + 8位数字
var mobilePattern = regexp.MustCompile(`^\+81[789]0\d{8}$`)

var nonDigitPattern = regexp.MustCompile(`\D`)

// NormalizePhoneNumber 将输入号码规整为 E.164 形式
// 去掉所有非数字字符, 开头的 0 替换为日本国番号 +81
func NormalizePhoneNumber(phone string) string {
	digits := nonDigitPattern.ReplaceAllString(phone, "")

	if strings.HasPrefix(digits, "0") {
		return "+81" + digits[1:]
	}

	// 已经是 81 开头只需要加 +
	if strings.HasPrefix(digits, "81") {
		return "+" + digits
	}

	return "+" + digits
}

// ValidatePhoneNumber 判断号码规整后是否为合法的日本手机号
func ValidatePhoneNumber(phone string) bool {
	return mobilePattern.MatchString(NormalizePhoneNumber(phone))
}
