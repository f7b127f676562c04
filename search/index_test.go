package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-mesh/domain"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func TestMessageIndex_SearchByContent(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	deployed := domain.NewChatMessage("1", "2", "the deployment finished without errors")
	lunch := domain.NewChatMessage("2", "1", "lunch at noon?")
	req.NoError(index.Index(deployed))
	req.NoError(index.Index(lunch))

	results, err := index.Search(context.Background(), "deployment", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal(deployed.ID.String(), results[0].ID)
	req.Equal("1", results[0].SenderID)
	req.Equal("2", results[0].ReceiverID)
	req.Equal(deployed.Content, results[0].Content)
	req.WithinDuration(deployed.Timestamp, results[0].Timestamp, time.Millisecond)

	results, err = index.Search(context.Background(), "vacation", 10)
	req.NoError(err)
	req.Empty(results)
}

func TestMessageIndex_ReindexSameMessageKeepsOneDocument(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	m := domain.NewChatMessage("1", "2", "release notes are ready")
	req.NoError(index.Index(m))
	req.NoError(index.Index(m))

	results, err := index.Search(context.Background(), "release", 10)
	req.NoError(err)
	req.Len(results, 1)
}

func TestMessageIndex_DetectsLanguage(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	m := domain.NewChatMessage("1", "2", "This conversation should definitely be tagged as English text")
	req.NoError(index.Index(m))

	results, err := index.Search(context.Background(), "conversation", 10)
	req.NoError(err)
	req.Len(results, 1)
	req.Equal("en", results[0].Lang)
}

func TestMessageIndex_LimitCapsResults(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	for i := 0; i < 5; i++ {
		req.NoError(index.Index(domain.NewChatMessage("1", "2", "standup reminder")))
	}

	results, err := index.Search(context.Background(), "standup", 3)
	req.NoError(err)
	req.Len(results, 3)
}
