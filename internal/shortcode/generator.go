package shortcode

import (
	"crypto/rand"
	"math/big"
)

const (
	// Charset 包含用于生成短码的所有字符, 均为 URL 安全字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength 是生成的短码的长度
	CodeLength = 8
)

// Generator 生成随机短码
// 生成器本身不保证唯一性, 唯一性由 short_urls 表的唯一索引约束;
// 插入冲突时由调用方换一个新码重试
type Generator struct{}

// NewGenerator 创建一个新的短码生成器实例
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate 使用加密安全的随机数生成一个定长短码
func (g *Generator) Generate() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(Charset))))
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}
