package reader

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"

	sluicelode "github.com/justapithecus/sluice/lode"
	"github.com/justapithecus/sluice/types"
)

// LodeReader reads renders from a lode dataset.
type LodeReader struct {
	ds lode.Dataset
}

var _ Reader = (*LodeReader)(nil)

// NewLodeReader creates a reader over ds.
func NewLodeReader(ds lode.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// InspectRender implements Reader.
func (r *LodeReader) InspectRender(ctx context.Context, requestID string, withHTML bool) (*InspectRenderResponse, error) {
	render, err := sluicelode.ReadRender(ctx, r.ds, requestID)
	if err != nil {
		return nil, err
	}

	resp := &InspectRenderResponse{}
	if render.Outcome != nil {
		resp.Summary = SummaryFromOutcome(*render.Outcome)
	} else {
		// Chunks without an outcome: the writer died before closing.
		resp.Summary = RenderSummary{
			RequestID: requestID,
			Status:    string(types.OutcomePending),
			Chunks:    int64(render.Chunks),
		}
	}
	resp.Summary.BytesWritten = max(resp.Summary.BytesWritten, int64(len(render.HTML)))
	if withHTML {
		resp.HTML = render.HTML
	}
	return resp, nil
}

// ListRenders implements Reader.
func (r *LodeReader) ListRenders(ctx context.Context, opts ListRendersOptions) ([]ListRenderItem, error) {
	outcomes, err := sluicelode.ListOutcomes(ctx, r.ds, opts.Day)
	if err != nil {
		return nil, err
	}

	items := make([]ListRenderItem, 0, len(outcomes))
	for _, o := range outcomes {
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		items = append(items, ListRenderItem{
			RequestID:    o.RequestID,
			Document:     o.Document,
			Status:       o.Status,
			BytesWritten: o.BytesWritten,
			CompletedAt:  o.CompletedAt,
		})
		if opts.Limit > 0 && len(items) == opts.Limit {
			break
		}
	}
	return items, nil
}

// StatsRenders implements Reader.
func (r *LodeReader) StatsRenders(ctx context.Context, day string) (*RenderStats, error) {
	outcomes, err := sluicelode.ListOutcomes(ctx, r.ds, day)
	if err != nil {
		return nil, err
	}

	stats := &RenderStats{}
	for _, o := range outcomes {
		stats.Total++
		switch types.OutcomeStatus(o.Status) {
		case types.OutcomeSuccess:
			stats.Succeeded++
		case types.OutcomeAborted:
			stats.Aborted++
		case types.OutcomeRenderError:
			stats.Failed++
		default:
			return nil, fmt.Errorf("outcome %s has unknown status %q", o.RequestID, o.Status)
		}
		stats.ClientRendered += o.ClientRendered
		stats.BytesWritten += o.BytesWritten
	}
	return stats, nil
}
