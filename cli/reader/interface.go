package reader

import "context"

// Reader abstracts read-only access to persisted renders.
// Implementations must not mutate storage.
type Reader interface {
	// InspectRender returns one render. withHTML includes its output.
	InspectRender(ctx context.Context, requestID string, withHTML bool) (*InspectRenderResponse, error)
	// ListRenders returns renders newest first.
	ListRenders(ctx context.Context, opts ListRendersOptions) ([]ListRenderItem, error)
	// StatsRenders aggregates the outcomes of one day, or all days.
	StatsRenders(ctx context.Context, day string) (*RenderStats, error)
}
