package backup

import (
	"context"

	"github.com/google/uuid"
)

// RunInfo describes an import run to observers.
type RunInfo struct {
	ID         uuid.UUID
	Mode       Mode
	Version    string
	BlogID     int64
	OperatorID int64
}

// Hook is the extension point for observing an import run. RunStarted fires
// once before any record is dispatched; RecordImported fires after each
// record its importer accepted. Hooks may read but must not block the
// import; an error from a hook aborts the run like any other import error.
type Hook interface {
	RunStarted(ctx context.Context, run RunInfo) error
	RecordImported(ctx context.Context, rec *Record) error
}
