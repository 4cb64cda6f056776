package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<html><head><title>Widgets 101</title></head><body>
<nav>skip me</nav>
<article><h1>Widgets 101</h1><p>Widgets are great.</p></article>
<footer>skip me too</footer>
</body></html>`

func TestWebScraperExtractsMainContentAndFillsTitle(t *testing.T) {
	reply := `{"text":"Widgets are great.","key_points":["widgets are great"],"is_relevant":true}`
	ws := agents.NewWebScraper(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}))

	out, err := ws.Run(context.Background(), sampleHTML, "https://example.com/widgets", "widgets")
	require.NoError(t, err)
	require.Equal(t, "Widgets 101", out.Title)
	require.True(t, out.IsRelevant)
	require.Contains(t, out.KeyPoints, "widgets are great")
}
