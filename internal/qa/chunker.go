package qa

import (
	"strings"
	"unicode"
)

// Chunker 文本切块器
// 优先按段落边界切分，超长段落再按句子切分
type Chunker struct {
	maxChunkSize int // 单块最大字符数
	overlap      int // 相邻块重叠字符数
}

// NewChunker 创建切块器
func NewChunker(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1500
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 200
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
	}
}

// Split 将文本切分为若干块，空白块被丢弃
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// 段落放不下时先收束当前块
		if current.Len() > 0 && current.Len()+len(para)+2 > c.maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(c.tail(chunks[len(chunks)-1]))
		}

		if len(para) > c.maxChunkSize {
			for _, sentence := range splitSentences(para) {
				if current.Len() > 0 && current.Len()+len(sentence)+1 > c.maxChunkSize {
					chunks = append(chunks, current.String())
					current.Reset()
					current.WriteString(c.tail(chunks[len(chunks)-1]))
				}
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(sentence)
			}
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// tail 取上一块末尾作为重叠前缀，保持跨块语境
func (c *Chunker) tail(chunk string) string {
	if c.overlap == 0 || len(chunk) <= c.overlap {
		return ""
	}
	tail := chunk[len(chunk)-c.overlap:]
	// 对齐到词边界，避免截断多字节字符
	if idx := strings.IndexFunc(tail, unicode.IsSpace); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail) + " "
}

// splitSentences 按句末标点粗切句子
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
