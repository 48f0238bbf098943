package qa

import (
	"fmt"
	"strings"
)

const stuffPromptTemplate = `Create a final answer to the given question using the provided document excerpts (given in no particular order) as sources. ALWAYS include a "SOURCES" section in your answer citing only the minimal set of sources needed to answer the question. If you are unable to answer the question, simply state that you do not have enough information to answer the question and leave the SOURCES section empty.

---------

QUESTION: %s
=========
%s
=========
FINAL ANSWER:`

const plainSystemPrompt = "You are an ai assistant, helping summarize and communicate simple news for the world and costa rica."

// sourceLabel 切块的引用标识，答案 SOURCES 段引用它
func sourceLabel(gacetaID uint, chunkIndex int) string {
	return fmt.Sprintf("gaceta-%d-chunk-%d", gacetaID, chunkIndex)
}

// buildStuffPrompt 将检索到的切块塞入固定模板
func buildStuffPrompt(question string, gacetaID uint, results []SearchResult) string {
	var excerpts strings.Builder
	for i, r := range results {
		if i > 0 {
			excerpts.WriteString("\n")
		}
		excerpts.WriteString(fmt.Sprintf("Content: %s\nSource: %s\n", r.Content, sourceLabel(gacetaID, r.ChunkIndex)))
	}
	return fmt.Sprintf(stuffPromptTemplate, question, excerpts.String())
}

// splitAnswerSources 将模型输出拆为答案正文与引用列表
// 没有 SOURCES 段时整段视为答案
func splitAnswerSources(output string) (string, []string) {
	const marker = "SOURCES:"
	idx := strings.LastIndex(output, marker)
	if idx < 0 {
		return strings.TrimSpace(output), []string{}
	}

	answer := strings.TrimSpace(output[:idx])
	sources := []string{}
	for _, part := range strings.FieldsFunc(output[idx+len(marker):], func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "-"))
		part = strings.TrimSpace(part)
		if part != "" && part != "N/A" && part != "None" {
			sources = append(sources, part)
		}
	}
	return answer, sources
}
