// Package search maintains a full-text index over message bodies and serves
// channel-scoped queries. The index is fed asynchronously from the broadcast
// stream, so it is a sink like any other: always a little behind the store,
// never ahead of it.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"channel-hub/domain"
	"channel-hub/domain/event"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldChannel = "channel"
	fieldContent = "content"
)

// Index wraps a bluge writer. It implements contract.EventSink for ingestion
// and contract.Searcher for queries.
//
// Soft deletes do not remove documents: content is retained for audit, and
// the read path drops hits whose message is currently deleted. This keeps
// restore free, at the cost of one store lookup per hit.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Consume indexes new and edited message bodies. All other event kinds are
// ignored here.
func (i *Index) Consume(_ context.Context, e event.Envelope) error {
	switch payload := e.Payload.(type) {
	case event.MessageReceived:
		return i.upsert(payload.Message)
	case event.MessageUpdated:
		return i.upsert(payload.Message)
	default:
		return nil
	}
}

func (i *Index) upsert(m event.MessagePayload) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewKeywordField(fieldChannel, string(m.ChannelID))).
		AddField(bluge.NewTextField(fieldContent, m.Content))
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("indexing message %s: %w", m.ID, err)
	}
	return nil
}

// Search returns the IDs of the best-matching messages in one channel.
func (i *Index) Search(ctx context.Context, channelID domain.ChannelID, query string, limit int) ([]uuid.UUID, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(channelID)).SetField(fieldChannel)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var ids []uuid.UUID
	for match, err := it.Next(); match != nil; match, err = it.Next() {
		if err != nil {
			return nil, err
		}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				} else {
					i.log.Warn("Unparseable document identifier in index", "value", string(value))
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
	}
	return ids, nil
}
