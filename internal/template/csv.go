package template

import (
	"strings"
)

// CsvRow 一行 CSV, 以表头为键
type CsvRow map[string]string

// ParsedCsv 解析结果
type ParsedCsv struct {
	Headers []string
	Rows    []CsvRow
}

// ParseCsv 解析联系人导入用的简单 CSV
// 第一行作为表头; 支持双引号包裹和 "" 转义; 整行为空的数据行会被跳过
func ParseCsv(csvText string) ParsedCsv {
	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return ParsedCsv{Headers: []string{}, Rows: []CsvRow{}}
	}

	headers := parseCsvLine(lines[0])

	rows := make([]CsvRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := parseCsvLine(line)
		if allEmpty(values) {
			continue
		}

		row := make(CsvRow, len(headers))
		for i, header := range headers {
			if i < len(values) {
				row[header] = values[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	return ParsedCsv{Headers: headers, Rows: rows}
}

func parseCsvLine(line string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	result = append(result, strings.TrimSpace(current.String()))
	return result
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
