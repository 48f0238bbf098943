package execution

import (
	"context"
	"testing"
	"time"

	"gacetachat/internal/gaceta"
	"gacetachat/internal/template"

	"github.com/stretchr/testify/require"
)

func TestGetSessionView_PlaceholdersForPendingPrompts(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	viewer := NewViewer(db)
	engine := NewEngine(db, &scriptedAnswerer{})

	off := false
	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "docaware", PromptText: "Summarize the gazette"},
		{Name: "plain", PromptText: "Say hello", DocAware: &off},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)

	// 未执行任何 prompt 时每个成员都有占位行
	view, err := viewer.GetSessionView(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, view.Results, 2)

	for _, r := range view.Results {
		require.Equal(t, LogStateInit, r.State)
		require.Equal(t, PlaceholderAnswer, r.Answer)
	}
	require.Equal(t, []string{PlaceholderSourcesPending}, view.Results[0].Sources)
	require.Equal(t, []string{PlaceholderSourcesNone}, view.Results[1].Sources)
}

func TestGetSessionView_ReflectsExecutedResults(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	viewer := NewViewer(db)
	engine := NewEngine(db, &scriptedAnswerer{})

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize the headline news", DocAware: boolPtr(false)},
	})

	sessionID, err := engine.CreateSession(ctx, nil, &tmpl.ID, nil)
	require.NoError(t, err)
	_, err = engine.RunBatch(ctx, sessionID, false)
	require.NoError(t, err)

	view, err := viewer.GetSessionView(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, view.Session.Status)
	require.Len(t, view.Results, 1)

	r := view.Results[0]
	require.Equal(t, LogStateExecuted, r.State)
	require.Contains(t, r.Answer, "answer: ")
	require.Equal(t, []string{"gaceta-1-chunk-0"}, r.Sources)
	require.NotNil(t, r.GeneratedAt)
}

func TestListSessionsByDate(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	viewer := NewViewer(db)
	engine := NewEngine(db, &scriptedAnswerer{})

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	g := &gaceta.GacetaPDF{PublishedAt: day, FilePath: "gaceta_pdfs/2025-06-02/gaceta.pdf"}
	require.NoError(t, db.Create(g).Error)
	other := &gaceta.GacetaPDF{PublishedAt: day.AddDate(0, 0, 1), FilePath: "gaceta_pdfs/2025-06-03/gaceta.pdf"}
	require.NoError(t, db.Create(other).Error)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize", DocAware: boolPtr(false)},
	})

	_, err := engine.CreateSession(ctx, nil, &tmpl.ID, &g.ID)
	require.NoError(t, err)
	_, err = engine.CreateSession(ctx, nil, &tmpl.ID, &other.ID)
	require.NoError(t, err)

	sessions, err := viewer.ListSessionsByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, g.ID, *sessions[0].GacetaID)
}

func TestLastSessionForGaceta(t *testing.T) {
	ctx := context.Background()
	db := setupEngineTestDB(t)
	viewer := NewViewer(db)
	engine := NewEngine(db, &scriptedAnswerer{})

	g := &gaceta.GacetaPDF{
		PublishedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		FilePath:    "gaceta_pdfs/2025-06-02/gaceta.pdf",
	}
	require.NoError(t, db.Create(g).Error)

	// 无会话时返回 nil 而非错误
	session, err := viewer.LastSessionForGaceta(ctx, g.ID)
	require.NoError(t, err)
	require.Nil(t, session)

	tmpl := seedTemplate(t, db, []template.PromptInput{
		{Name: "headline", PromptText: "Summarize", DocAware: boolPtr(false)},
	})

	first, err := engine.CreateSession(ctx, nil, &tmpl.ID, &g.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := engine.CreateSession(ctx, nil, &tmpl.ID, &g.ID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	session, err = viewer.LastSessionForGaceta(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, second, session.ID)
}
