package bot

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"

	"parasight/internal/ingest"
)

func TestSummarize(t *testing.T) {
	got := summarize([]ingest.Result{
		{URL: "https://a.example", Success: true, LinkID: "1"},
		{URL: "https://x.com/u/status/1", Success: true, LinkID: "2", ExpandedURLs: []string{"https://b.example", "https://c.example"}},
		{URL: "https://d.example", Error: "store link: disk full"},
	})

	assert.Equal(t, "✅ https://a.example\n"+
		"✅ https://x.com/u/status/1 (2 link(s) from post)\n"+
		"❌ https://d.example: store link: disk full\n"+
		"\nSaved 2 of 3.", got)
}

func TestNoteFor(t *testing.T) {
	assert.Equal(t, "Shared via Telegram by @ada", noteFor(&models.Message{From: &models.User{Username: "ada"}}))
	assert.Equal(t, "Shared via Telegram", noteFor(&models.Message{}))
}
