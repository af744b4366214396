package sideeffect

import (
	"go.uber.org/zap"
)

// Run 执行一个尽力而为的副作用
// 失败只记录日志, 绝不向调用方传播: 发送结果和重定向响应不因旁路持久化失败而改变
func Run(logger *zap.SugaredLogger, op string, fn func() error) {
	if err := fn(); err != nil {
		logger.Errorf("%s 失败 (已忽略): %v", op, err)
	}
}
