package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quillpress/quill/internal/backup"
	"github.com/quillpress/quill/internal/logging"
)

// handleHealth reports whether the server can reach its store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExportAll streams a whole-instance backup file.
func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	s.streamExport(w, r, "quill-full", backup.ModeFull, func(ctx context.Context, bw *backup.Writer) error {
		return bw.ExportAll(ctx)
	})
}

// handleExportSection streams a backup file holding one section only.
func (s *Server) handleExportSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if backup.ParseSection(section) == backup.SectionUnknown {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("unknown section %q", section),
			Code:  "EXPORT_UNKNOWN_SECTION",
		})
		return
	}
	s.streamExport(w, r, "quill-"+section, backup.ModeFull, func(ctx context.Context, bw *backup.Writer) error {
		return bw.ExportSection(ctx, section)
	})
}

// handleExportBlog streams one tenant's content as a single-mode backup file.
func (s *Server) handleExportBlog(w http.ResponseWriter, r *http.Request) {
	blogID, err := strconv.ParseInt(chi.URLParam(r, "blogID"), 10, 64)
	if err != nil || blogID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "blog id must be a positive integer",
			Code:  "EXPORT_BAD_BLOG_ID",
		})
		return
	}
	name := fmt.Sprintf("quill-blog-%d", blogID)
	s.streamExport(w, r, name, backup.ModeSingle, func(ctx context.Context, bw *backup.Writer) error {
		return bw.ExportBlog(ctx, blogID)
	})
}

// streamExport writes a manifest plus the export produced by fn straight to
// the response. An error after the first byte can only be logged; the client
// sees a truncated file.
func (s *Server) streamExport(w http.ResponseWriter, r *http.Request, name string, mode backup.Mode, fn func(context.Context, *backup.Writer) error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-"+stamp+".bak"))

	bw := backup.NewWriter(s.pool, w)
	err := bw.WriteManifest(mode)
	if err == nil {
		err = fn(r.Context(), bw)
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("export failed", "name", name, "error", err)
	}
}

// handleImport runs one restore from the request body. The whole file either
// commits or the store is untouched; the response carries the run summary.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode := backup.ParseMode(r.URL.Query().Get("mode"))

	var blogID int64
	if mode == backup.ModeSingle {
		var err error
		blogID, err = strconv.ParseInt(r.URL.Query().Get("blog"), 10, 64)
		if err != nil || blogID <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "single mode requires a positive blog query parameter",
				Code:  "IMPORT_BAD_BLOG_ID",
			})
			return
		}
	}

	operatorID, err := strconv.ParseInt(r.Header.Get("X-Operator-ID"), 10, 64)
	if err != nil || operatorID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "missing or invalid X-Operator-ID header",
			Code:  "IMPORT_BAD_OPERATOR",
		})
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	body := &limitTrackingReader{r: http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)}
	stats, err := s.coord.Run(ctx, body, backup.ImportRequest{
		Mode:       mode,
		BlogID:     blogID,
		OperatorID: operatorID,
		AssetRoot:  r.URL.Query().Get("asset_root"),
	})
	if err != nil {
		if body.limited {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("backup file exceeds the %d byte limit", s.cfg.Import.MaxFileSize),
				Code:  "IMPORT_FILE_TOO_LARGE",
			})
			return
		}
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      stats.RunID,
		"records":     stats.Records,
		"ignored":     stats.Ignored,
		"by_section":  stats.BySection,
		"duration_ms": stats.Duration.Milliseconds(),
	})
}

// limitTrackingReader remembers whether MaxBytesReader cut the body off. The
// decoder flattens read failures into line-level format errors over whatever
// partial line it was handed, so the handler needs its own signal to tell an
// oversized file apart from a malformed one.
type limitTrackingReader struct {
	r       io.Reader
	limited bool
}

func (b *limitTrackingReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		b.limited = true
	}
	return n, err
}
