package lode

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// Render is a persisted render reassembled from its records.
type Render struct {
	RequestID string
	// HTML is the concatenated output in flush order.
	HTML string
	// Chunks is the number of chunk records found.
	Chunks int
	// Outcome is nil if the render never recorded one.
	Outcome *OutcomeRecord
}

// ReadRender reassembles the output of requestID.
// Returns ErrRenderNotFound if no records exist.
func ReadRender(ctx context.Context, ds lode.Dataset, requestID string) (*Render, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	var chunks []ChunkRecord
	r := &Render{RequestID: requestID}
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "request_id", requestID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		// Manifest paths are a coarse pre-filter; record fields are
		// authoritative.
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || toString(m["request_id"]) != requestID {
				continue
			}
			switch m["record_kind"] {
			case RecordKindChunk:
				chunks = append(chunks, chunkFromMap(m))
			case RecordKindOutcome:
				o, err := outcomeFromMap(m)
				if err != nil {
					return nil, err
				}
				r.Outcome = &o
			}
		}
	}
	if len(chunks) == 0 && r.Outcome == nil {
		return nil, fmt.Errorf("%w: %s", ErrRenderNotFound, requestID)
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Data)
	}
	r.HTML = b.String()
	r.Chunks = len(chunks)
	return r, nil
}

// ListOutcomes returns every outcome record, newest snapshot first.
// day filters by partition day when non-empty.
func ListOutcomes(ctx context.Context, ds lode.Dataset, day string) ([]OutcomeRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	var out []OutcomeRecord
	// Snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindOutcome) {
			continue
		}
		if !snapshotMatchesFilter(snap, "day", day) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || m["record_kind"] != RecordKindOutcome {
				continue
			}
			o, err := outcomeFromMap(m)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	return out, nil
}
