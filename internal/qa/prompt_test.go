package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildStuffPrompt(t *testing.T) {
	results := []SearchResult{
		{ChunkIndex: 0, Content: "El tren eléctrico vuelve a operar."},
		{ChunkIndex: 3, Content: "Alerta roja por contaminación en el río Virilla."},
	}

	prompt := buildStuffPrompt("¿Qué pasó hoy?", 7, results)

	require.Contains(t, prompt, "QUESTION: ¿Qué pasó hoy?")
	require.Contains(t, prompt, "Content: El tren eléctrico vuelve a operar.")
	require.Contains(t, prompt, "Source: gaceta-7-chunk-0")
	require.Contains(t, prompt, "Source: gaceta-7-chunk-3")
	require.Contains(t, prompt, `ALWAYS include a "SOURCES" section`)
	require.True(t, strings.HasSuffix(prompt, "FINAL ANSWER:"))
}

func TestSplitAnswerSources(t *testing.T) {
	answer, sources := splitAnswerSources(
		"El tren eléctrico vuelve a operar en Costa Rica.\n\nSOURCES: gaceta-7-chunk-0, gaceta-7-chunk-3")
	require.Equal(t, "El tren eléctrico vuelve a operar en Costa Rica.", answer)
	require.Equal(t, []string{"gaceta-7-chunk-0", "gaceta-7-chunk-3"}, sources)
}

func TestSplitAnswerSources_DashedList(t *testing.T) {
	answer, sources := splitAnswerSources(
		"Resumen del día.\nSOURCES:\n- gaceta-1-chunk-2\n- gaceta-1-chunk-5")
	require.Equal(t, "Resumen del día.", answer)
	require.Equal(t, []string{"gaceta-1-chunk-2", "gaceta-1-chunk-5"}, sources)
}

func TestSplitAnswerSources_NoMarker(t *testing.T) {
	answer, sources := splitAnswerSources("  Sin fuentes esta vez.  ")
	require.Equal(t, "Sin fuentes esta vez.", answer)
	require.Empty(t, sources)
}

func TestSplitAnswerSources_EmptyAndPlaceholders(t *testing.T) {
	answer, sources := splitAnswerSources("No tengo suficiente información.\nSOURCES: N/A, None,")
	require.Equal(t, "No tengo suficiente información.", answer)
	require.Empty(t, sources)
}

func TestSplitAnswerSources_LastMarkerWins(t *testing.T) {
	// 答案正文里出现过 SOURCES: 字样时取最后一个
	answer, sources := splitAnswerSources(
		"La sección SOURCES: del formato se explica arriba.\nSOURCES: gaceta-2-chunk-1")
	require.Contains(t, answer, "se explica arriba")
	require.Equal(t, []string{"gaceta-2-chunk-1"}, sources)
}
