package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// fakeStore is an in-memory stand-in for the storage engine. Statements are
// routed by identity against the constants in sql.go, so any drift between
// importer and statement shows up as a missed route rather than silently
// passing. It doubles as its own transaction.
type fakeStore struct {
	inserts map[string][][]any
	execLog []string

	maxIDs map[string]int64
	users  map[string]int64
	cats   map[string]int64
	media  map[string]int64

	queries map[string]*fakeRows

	failExec string

	begun      bool
	committed  bool
	rolledBack bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inserts: make(map[string][][]any),
		maxIDs:  make(map[string]int64),
		users:   make(map[string]int64),
		cats:    make(map[string]int64),
		media:   make(map[string]int64),
		queries: make(map[string]*fakeRows),
	}
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.begun = true
	return s, nil
}

func (s *fakeStore) Commit(ctx context.Context) error {
	s.committed = true
	return nil
}

func (s *fakeStore) Rollback(ctx context.Context) error {
	if !s.committed {
		s.rolledBack = true
	}
	return nil
}

func (s *fakeStore) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execLog = append(s.execLog, sql)
	if s.failExec != "" && sql == s.failExec {
		return pgconn.CommandTag{}, fmt.Errorf("forced failure on %q", sql)
	}

	if strings.HasPrefix(sql, "INSERT") {
		s.inserts[sql] = append(s.inserts[sql], args)
		switch sql {
		case sqlInsertUser:
			s.users[textArg(args[1])] = args[0].(int64)
		case sqlInsertCategory:
			key := fmt.Sprintf("%d/%s", args[1].(int64), textArg(args[3]))
			s.cats[key] = args[0].(int64)
		case sqlInsertMedia:
			key := textArg(args[2]) + "|" + textArg(args[3])
			s.media[key] = args[0].(int64)
		}
	}
	return pgconn.CommandTag{}, nil
}

func (s *fakeStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.HasPrefix(sql, "SELECT COALESCE(MAX("):
		table := sql[strings.LastIndex(sql, " ")+1:]
		return &fakeRow{vals: []any{s.maxIDs[table]}}

	case sql == sqlSelectUserByLogin:
		if id, ok := s.users[args[0].(string)]; ok {
			return &fakeRow{vals: []any{id}}
		}

	case sql == sqlSelectCategoryBySlug:
		key := fmt.Sprintf("%d/%s", args[0].(int64), args[1].(string))
		if id, ok := s.cats[key]; ok {
			return &fakeRow{vals: []any{id}}
		}

	case sql == sqlSelectMediaByPathFile:
		key := args[0].(string) + "|" + args[1].(string)
		if id, ok := s.media[key]; ok {
			return &fakeRow{vals: []any{id}}
		}
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

func (s *fakeStore) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if r, ok := s.queries[sql]; ok {
		return &fakeRows{cols: r.cols, data: r.data}, nil
	}
	return &fakeRows{}, nil
}

// count returns how many rows a statement inserted.
func (s *fakeStore) count(stmt string) int { return len(s.inserts[stmt]) }

// insertArgs returns the arguments of the i-th execution of a statement.
func (s *fakeStore) insertArgs(stmt string, i int) []any { return s.inserts[stmt][i] }

func textArg(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case pgtype.Text:
		return x.String
	}
	return fmt.Sprint(v)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		default:
			return fmt.Errorf("fakeRow: unsupported scan destination %T", d)
		}
	}
	return nil
}

type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.i-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		default:
			return fmt.Errorf("fakeRows: unsupported scan destination %T", d)
		}
	}
	return nil
}

// fakeAuthorizer answers rights checks from fixed maps.
type fakeAuthorizer struct {
	instance bool
	blogs    map[int64]bool
}

func (a *fakeAuthorizer) CanAdminInstance(ctx context.Context, userID int64) (bool, error) {
	return a.instance, nil
}

func (a *fakeAuthorizer) CanAdminBlog(ctx context.Context, userID, blogID int64) (bool, error) {
	return a.blogs[blogID], nil
}

// fakeHook records every callback it receives.
type fakeHook struct {
	runs    []RunInfo
	records []*Record
	err     error
}

func (h *fakeHook) RunStarted(ctx context.Context, run RunInfo) error {
	h.runs = append(h.runs, run)
	return h.err
}

func (h *fakeHook) RecordImported(ctx context.Context, rec *Record) error {
	h.records = append(h.records, rec)
	return nil
}
