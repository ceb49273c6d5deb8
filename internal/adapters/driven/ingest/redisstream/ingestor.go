// Package redisstream forwards accepted documents to a Redis stream. The
// downstream indexing pipeline consumes the stream with consumer groups;
// this side only appends.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// DefaultStream is the stream documents land on when none is configured.
const DefaultStream = "ingestd:documents"

// Ensure Ingestor implements the interface.
var _ driven.Ingestor = (*Ingestor)(nil)

// Ingestor appends documents to a Redis stream. A nil error from Ingest
// means Redis acknowledged the whole batch.
type Ingestor struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// New creates a stream ingestor. An empty stream name uses DefaultStream;
// maxLen, when positive, caps the stream with approximate trimming.
func New(client redis.Cmdable, stream string, maxLen int64) *Ingestor {
	if stream == "" {
		stream = DefaultStream
	}
	return &Ingestor{client: client, stream: stream, maxLen: maxLen}
}

// Ingest appends the batch in one pipeline. Failures are transient: Redis
// connectivity is expected to come back, and the caller's retry replays
// the whole batch.
func (i *Ingestor) Ingest(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	pipe := i.client.Pipeline()
	for idx := range docs {
		payload, err := json.Marshal(&docs[idx])
		if err != nil {
			return domain.Fatal(fmt.Errorf("encode document %s: %w", docs[idx].DocID, err))
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: i.stream,
			MaxLen: i.maxLen,
			Approx: true,
			Values: map[string]any{
				"doc_id":    docs[idx].DocID,
				"source_id": docs[idx].SourceID,
				"payload":   payload,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Transient(fmt.Errorf("append to stream %s: %w", i.stream, err))
	}
	return nil
}
