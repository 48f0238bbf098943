package gaceta

import "time"

// GacetaPDF 一期公报 PDF 及其落盘位置
// Indexed 表示文本已切块向量化，可用于检索问答
type GacetaPDF struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PublishedAt time.Time `json:"published_at" gorm:"index;not null"` // 公报日期（当天零点，UTC）
	FilePath    string    `json:"file_path" gorm:"size:512;not null"`
	SourceURL   string    `json:"source_url" gorm:"size:512"`
	Indexed     bool      `json:"indexed" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (GacetaPDF) TableName() string {
	return "gacetas"
}
