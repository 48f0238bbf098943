package gaceta

import (
	"bytes"
	"fmt"

	"github.com/dslipak/pdf"
)

// ExtractText 提取 PDF 全文
func ExtractText(filePath string) (string, error) {
	r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var buf bytes.Buffer
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("提取 PDF 文本失败: %w", err)
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("读取 PDF 文本失败: %w", err)
	}

	text := buf.String()
	if text == "" {
		return "", fmt.Errorf("PDF 未包含可提取文本")
	}
	return text, nil
}
