package search

import (
	"context"
	"log/slog"
	"time"

	"chat-mesh/domain"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
)

// Result is one search hit, rebuilt from the stored fields.
type Result struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	Lang       string
	Timestamp  time.Time
}

// MessageIndex maintains a full-text index over chat messages. Each
// document carries a detected-language keyword field so results can be
// narrowed per language later on.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (i *MessageIndex) Index(m domain.ChatMessage) error {
	info := whatlanggo.Detect(m.Content)
	lang := info.Lang.Iso6391()

	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewKeywordField("sender", m.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField("receiver", m.ReceiverID).StoreValue()).
		AddField(bluge.NewKeywordField("lang", lang).StoreValue()).
		AddField(bluge.NewStoredOnlyField("timestamp", []byte(m.Timestamp.UTC().Format(time.RFC3339Nano))))

	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query against message content and returns up to
// limit hits, best first.
func (i *MessageIndex) Search(ctx context.Context, text string, limit int) ([]Result, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewMatchQuery(text).SetField("content")
	request := bluge.NewTopNSearch(limit, query)

	iter, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var results []Result
	match, err := iter.Next()
	for err == nil && match != nil {
		var r Result
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				r.ID = string(value)
			case "content":
				r.Content = string(value)
			case "sender":
				r.SenderID = string(value)
			case "receiver":
				r.ReceiverID = string(value)
			case "lang":
				r.Lang = string(value)
			case "timestamp":
				if t, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					r.Timestamp = t
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		results = append(results, r)
		match, err = iter.Next()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}
