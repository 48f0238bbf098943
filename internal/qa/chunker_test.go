package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(1500, 200)
	chunks := c.Split("  Texto corto de prueba.  ")
	require.Equal(t, []string{"Texto corto de prueba."}, chunks)
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(1500, 200)
	require.Nil(t, c.Split("   \n\n  "))
}

func TestChunker_SplitsOnParagraphs(t *testing.T) {
	c := NewChunker(100, 20)

	paraA := strings.Repeat("a", 80)
	paraB := strings.Repeat("b", 80)
	text := paraA + "\n\n" + paraB

	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	require.Contains(t, chunks[0], paraA)
	require.Contains(t, chunks[1], paraB)

	// 每块都不超过上限
	for _, ch := range chunks {
		require.LessOrEqual(t, len(ch), 100)
	}
}

func TestChunker_OverlapCarriesContext(t *testing.T) {
	c := NewChunker(100, 30)

	paraA := "uno dos tres cuatro cinco seis siete ocho nueve diez once doce trece catorce quince"
	paraB := strings.Repeat("b", 60)
	chunks := c.Split(paraA + "\n\n" + paraB)
	require.Len(t, chunks, 2)

	// 第二块携带上一块尾部作为重叠前缀
	require.Contains(t, chunks[1], "catorce quince", "第二块应携带上一块尾部作为重叠")
	require.Contains(t, chunks[1], paraB)
}

func TestChunker_LongParagraphFallsBackToSentences(t *testing.T) {
	c := NewChunker(120, 0)

	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("Esta es una oración de relleno con contenido suficiente. ")
	}

	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		require.LessOrEqual(t, len(ch), 120)
		require.NotEmpty(t, strings.TrimSpace(ch))
	}
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("Primera frase. ¡Segunda frase! ¿Tercera? Cuarta sin punto")
	require.Equal(t, []string{
		"Primera frase.",
		"¡Segunda frase!",
		"¿Tercera?",
		"Cuarta sin punto",
	}, sentences)
}
