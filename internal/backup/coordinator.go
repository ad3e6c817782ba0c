package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// importHandler is the per-mode side of the coordinator: prepare runs once
// inside the transaction before any record, handle consumes one record.
type importHandler interface {
	prepare(ctx context.Context, tx DBTX) error
	handle(ctx context.Context, tx DBTX, sec Section, rec *Record) error
}

// ImportRequest describes one restore run.
type ImportRequest struct {
	// Mode the caller is asking for. Must match the file's declared mode.
	Mode Mode

	// BlogID is the destination tenant (single mode only).
	BlogID int64

	// OperatorID identifies the calling user for authorization checks and
	// as the fallback author for synthesized content.
	OperatorID int64

	// AssetRoot overrides the destination path media files are rewritten
	// under (single mode). Empty derives /media/blog/<id>.
	AssetRoot string
}

// ImportStats summarizes a committed run.
type ImportStats struct {
	RunID     uuid.UUID
	Records   int
	Ignored   int
	BySection map[string]int
	Duration  time.Duration
}

// Coordinator orchestrates one full pass over a backup file's record stream:
// signature and mode checks, authorization, one storage transaction, legacy
// upgrading, per-section dispatch, hooks. Any error rolls back everything
// inserted so far and is surfaced with the offending source line attached.
//
// All mutable run state (translation tables, allocation counters, caches)
// lives in the handler built per run, never in the Coordinator itself, so a
// Coordinator is safe to reuse across runs.
type Coordinator struct {
	db    TxBeginner
	auth  Authorizer
	hooks []Hook
	log   *slog.Logger
}

// NewCoordinator creates a Coordinator over a store and an authorizer.
// Hooks are invoked in registration order.
func NewCoordinator(db TxBeginner, auth Authorizer, hooks ...Hook) *Coordinator {
	return &Coordinator{
		db:    db,
		auth:  auth,
		hooks: hooks,
		log:   slog.Default(),
	}
}

// Run imports one backup file. It either commits every record or leaves the
// destination store exactly as it was; there is no partial-success mode.
func (c *Coordinator) Run(ctx context.Context, src io.Reader, req ImportRequest) (*ImportStats, error) {
	start := time.Now()

	r := NewReader(src)
	man, err := r.Manifest()
	if err != nil {
		return nil, err
	}
	if man.Mode != req.Mode {
		return nil, fmt.Errorf("file declares %s mode, caller requested %s: %w",
			man.Mode, req.Mode, ErrModeMismatch)
	}

	instanceAdmin, err := c.auth.CanAdminInstance(ctx, req.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("authorization check: %w", err)
	}
	switch req.Mode {
	case ModeFull:
		if !instanceAdmin {
			return nil, ErrNotAuthorized
		}
	case ModeSingle:
		ok, err := c.auth.CanAdminBlog(ctx, req.OperatorID, req.BlogID)
		if err != nil {
			return nil, fmt.Errorf("authorization check: %w", err)
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	stats := &ImportStats{
		RunID:     uuid.New(),
		BySection: make(map[string]int),
	}
	log := c.log.With("run_id", stats.RunID, "mode", req.Mode.String(), "version", man.RawVersion)
	log.Info("import started", "blog_id", req.BlogID, "operator_id", req.OperatorID)

	var h importHandler
	if req.Mode == ModeFull {
		h = newFullImporter()
	} else {
		h = newTenantImporter(req.BlogID, req.OperatorID, instanceAdmin, req.AssetRoot)
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful commit is a harmless no-op.
	defer tx.Rollback(ctx)

	if err := h.prepare(ctx, tx); err != nil {
		return nil, fmt.Errorf("prepare import: %w", err)
	}

	guard := &constraintGuard{tx: tx}
	defer guard.restore(ctx)

	for _, hook := range c.hooks {
		if err := hook.RunStarted(ctx, RunInfo{
			ID:         stats.RunID,
			Mode:       req.Mode,
			Version:    man.RawVersion,
			BlogID:     req.BlogID,
			OperatorID: req.OperatorID,
		}); err != nil {
			return nil, fmt.Errorf("run hook: %w", err)
		}
	}

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if man.Legacy() {
			upgradeLegacyRecord(rec)
		}

		sec := ParseSection(rec.Section())
		if sec == SectionUnknown {
			stats.Ignored++
			continue
		}

		if deferredSections[sec] {
			if err := guard.relax(ctx); err != nil {
				return nil, importError(rec, err)
			}
		} else if err := guard.restore(ctx); err != nil {
			return nil, importError(rec, err)
		}

		if err := h.handle(ctx, tx, sec, rec); err != nil {
			return nil, importError(rec, err)
		}

		for _, hook := range c.hooks {
			if err := hook.RecordImported(ctx, rec); err != nil {
				return nil, importError(rec, err)
			}
		}

		stats.Records++
		stats.BySection[rec.Section()]++
	}

	if err := guard.restore(ctx); err != nil {
		return nil, fmt.Errorf("restore constraint checking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	stats.Duration = time.Since(start)
	log.Info("import committed",
		"records", stats.Records,
		"ignored", stats.Ignored,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}
