package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"fatturamerge/internal/config"
	"fatturamerge/internal/models"
	"fatturamerge/internal/pdfkit"
)

// ErrEmptyResult is returned when no group in the batch could be merged. It
// is the only request-level failure; everything smaller is absorbed into the
// report.
var ErrEmptyResult = errors.New("no complete document groups could be merged")

// MergerConfig holds the pipeline knobs taken from the application config.
type MergerConfig struct {
	Workers           int
	GroupingMode      config.GroupingMode
	NamingMode        config.NamingMode
	ReferenceFallback config.ReferenceFallback
}

// Merger runs the full pipeline for one request: group the uploads, extract
// metadata, merge each group, and name the outputs.
type Merger struct {
	engine    pdfkit.Engine
	extractor *Extractor
	config    MergerConfig
}

// NewMerger creates a Merger backed by the given PDF engine. MergerConfig is
// a plain struct that callers may build without going through config.Load and
// its validation; Workers must still end up positive here, since errgroup's
// SetLimit(0) would block every Go call forever.
func NewMerger(engine pdfkit.Engine, cfg MergerConfig) *Merger {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Merger{
		engine:    engine,
		extractor: NewExtractor(cfg.ReferenceFallback),
		config:    cfg,
	}
}

// groupResult carries one merged group from the parallel phase into the
// sequential naming pass.
type groupResult struct {
	key      string
	baseName string
	bytes    []byte
}

// MergeGroups processes the uploaded documents and returns the batch report.
// Groups are processed concurrently up to Workers; per-group failures are
// recorded in the report and do not abort the batch. Collision resolution
// runs as a single pass after the parallel phase, in group order.
func (m *Merger) MergeGroups(ctx context.Context, docs []models.UploadedDocument) (*models.MergeReport, error) {
	groups := BuildGroups(docs, m.config.GroupingMode)
	report := &models.MergeReport{GroupsAttempted: len(groups)}

	results := make([]*groupResult, len(groups))
	failures := make([]*models.GroupFailure, len(groups))

	eg := &errgroup.Group{}
	eg.SetLimit(m.config.Workers)
	for i, group := range groups {
		eg.Go(func() error {
			result, err := m.processGroup(ctx, group)
			if err != nil {
				slog.Warn("Group could not be merged. Dropping from output.", "groupKey", group.Key, "error", err)
				failures[i] = &models.GroupFailure{Key: group.Key, Reason: err.Error()}
				return nil
			}
			results[i] = result
			return nil
		})
	}
	// Goroutines only write their own slot and never return an error.
	_ = eg.Wait()

	var kept []*groupResult
	var bases []string
	for _, result := range results {
		if result == nil {
			continue
		}
		kept = append(kept, result)
		bases = append(bases, result.baseName)
	}
	filenames := ResolveCollisions(bases)
	for i, result := range kept {
		report.Outputs = append(report.Outputs, models.MergedOutput{
			Filename: filenames[i],
			Bytes:    result.bytes,
		})
	}
	report.GroupsMerged = len(report.Outputs)
	for _, failure := range failures {
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
		}
	}

	if report.GroupsMerged == 0 {
		return report, fmt.Errorf("%w (documents: %d, complete groups: %d)", ErrEmptyResult, len(docs), report.GroupsAttempted)
	}
	return report, nil
}

func (m *Merger) processGroup(ctx context.Context, group models.DocumentGroup) (*groupResult, error) {
	logCtx := slog.With("groupKey", group.Key)

	members := make([][]byte, 0, len(group.Members))
	var textBuilder strings.Builder
	pageTotal := 0
	for _, member := range group.Members {
		parsed, err := m.engine.Parse(ctx, member.Document.OriginalName, member.Document.Content)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", member.Document.OriginalName, err)
		}
		members = append(members, member.Document.Content)
		pageTotal += parsed.PageCount
		textBuilder.WriteString(parsed.Text)
		textBuilder.WriteString("\n")
	}

	text := NormalizeText(textBuilder.String())
	meta, trace := m.extractor.Extract(text, group.Key)
	for _, entry := range trace {
		logCtx.Debug("Extraction attempt.", "heuristic", entry.Heuristic, "fragment", entry.Fragment, "accepted", entry.Accepted)
	}

	merged, err := m.engine.Merge(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	logCtx.Info("Group merged.",
		"memberCount", len(members),
		"pageCount", pageTotal,
		"addressee", meta.AddresseeName,
		"reference", meta.ReferenceNumber,
	)
	return &groupResult{
		key:      group.Key,
		baseName: BuildBaseName(group.Key, meta, m.config.NamingMode),
		bytes:    merged,
	}, nil
}
