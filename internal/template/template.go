package template

import (
	"regexp"
	"strings"
)

// variablePattern 匹配 {{变量名}} 形式的占位符
var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ReplaceVariables 将模板中的 {{变量}} 替换为给定的值
// 未提供值的变量原样保留, 方便操作员在预览时发现遗漏
func ReplaceVariables(tmpl string, variables map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := variables[key]; ok {
			return value
		}
		return match
	})
}

// ExtractVariables 提取模板引用的全部变量名, 去重并保持首次出现顺序
func ExtractVariables(tmpl string) []string {
	matches := variablePattern.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]struct{}, len(matches))
	variables := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimSpace(m[1])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		variables = append(variables, key)
	}
	return variables
}
