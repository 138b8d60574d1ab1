package lode

import (
	"context"
	"fmt"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// LodeClient is a Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // serializes dataset writes
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteChunks writes a batch of output chunks as one snapshot.
func (c *LodeClient) WriteChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]any, 0, len(chunks))
	for _, ch := range chunks {
		records = append(records, toChunkRecordMap(ch))
	}
	return c.write(ctx, records, "chunks")
}

// WriteOutcome writes the outcome record of the render.
func (c *LodeClient) WriteOutcome(ctx context.Context, outcome OutcomeRecord) error {
	return c.write(ctx, []any{toOutcomeRecordMap(outcome)}, "outcome")
}

func (c *LodeClient) write(ctx context.Context, records []any, what string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, fmt.Sprintf("%s/%s/%s", c.config.Dataset, c.config.RequestID, what))
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
