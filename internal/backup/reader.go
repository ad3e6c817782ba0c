package backup

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// signaturePrefix opens the first line of every backup file:
// ///TAG|<version>|<mode>.
const signaturePrefix = "///TAG|"

// CurrentVersion is the format version the Writer emits. Files declaring a
// version below 2 go through the legacy adapter before dispatch.
const CurrentVersion = "2.0"

// Mode is the import policy a file was exported for.
type Mode int

const (
	// ModeSingle merges one exported tenant into an existing store,
	// re-deriving every identifier.
	ModeSingle Mode = iota

	// ModeFull restores an entire instance into an empty store, trusting
	// embedded identifiers verbatim.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "single"
}

// ParseMode reads a mode token case-insensitively. Unrecognized values
// default to single, the more conservative policy.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "full") {
		return ModeFull
	}
	return ModeSingle
}

// Manifest is the decoded signature line of a backup file.
type Manifest struct {
	RawVersion string
	Version    float64
	Mode       Mode
}

// Legacy reports whether records from this file need the legacy adapter.
func (m Manifest) Legacy() bool { return m.Version < 2 }

// Reader is a pull-style decoder for the flat backup format. It returns one
// Record per data row, maintaining the active section name and column order,
// and tracks line numbers for diagnostics. Blank lines are skipped.
type Reader struct {
	scanner  *bufio.Scanner
	line     int
	section  string
	columns  []string
	manifest *Manifest
}

// NewReader wraps a byte stream. The stream's first non-blank line must be
// the signature line; it is consumed on the first call to Manifest or Next.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Reader{scanner: sc}
}

// Manifest returns the file's decoded signature line, reading it if it has
// not been read yet.
func (r *Reader) Manifest() (Manifest, error) {
	if r.manifest != nil {
		return *r.manifest, nil
	}

	line, err := r.readLine()
	if err == io.EOF {
		return Manifest{}, formatErrorf(r.line, "missing signature line")
	}
	if err != nil {
		return Manifest{}, err
	}
	if !strings.HasPrefix(line, signaturePrefix) {
		return Manifest{}, formatErrorf(r.line, "missing signature line (expected %q prefix)", signaturePrefix)
	}

	rest := strings.TrimPrefix(line, signaturePrefix)
	version, modeToken, _ := strings.Cut(rest, "|")
	num, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return Manifest{}, formatErrorf(r.line, "invalid format version %q", version)
	}

	r.manifest = &Manifest{
		RawVersion: version,
		Version:    num,
		Mode:       ParseMode(modeToken),
	}
	return *r.manifest, nil
}

// Next returns the next decoded Record, or io.EOF at end of stream.
// Header lines update parser state and produce no record by themselves.
func (r *Reader) Next() (*Record, error) {
	if r.manifest == nil {
		if _, err := r.Manifest(); err != nil {
			return nil, err
		}
	}

	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}

		if strings.HasPrefix(line, "[") {
			if err := r.parseHeader(line); err != nil {
				return nil, err
			}
			continue
		}

		return r.parseRow(line)
	}
}

// readLine returns the next non-blank line, stripping a trailing CR so CRLF
// input decodes identically to LF input. Returns io.EOF at end of stream.
func (r *Reader) readLine() (string, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", &FormatError{Line: r.line, Msg: "read input: " + err.Error(), Err: err}
	}
	return "", io.EOF
}

// parseHeader decodes "[name col1,col2,...]" and updates the active section.
func (r *Reader) parseHeader(line string) error {
	if !strings.HasSuffix(line, "]") {
		return formatErrorf(r.line, "unterminated section header")
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")

	name, cols, ok := strings.Cut(body, " ")
	if !ok || name == "" || cols == "" {
		return formatErrorf(r.line, "malformed section header %q", line)
	}

	r.section = name
	r.columns = strings.Split(cols, ",")
	return nil
}

// parseRow decodes one quoted data row against the active header.
func (r *Reader) parseRow(line string) (*Record, error) {
	if r.section == "" {
		return nil, formatErrorf(r.line, "data row before any section header")
	}

	values, err := splitRow(line)
	if err != nil {
		return nil, formatErrorf(r.line, "%v", err)
	}
	if len(values) != len(r.columns) {
		return nil, formatErrorf(r.line, "section %s expects %d values, row has %d",
			r.section, len(r.columns), len(values))
	}

	rec := NewRecord(r.section, r.line)
	for i, col := range r.columns {
		rec.Set(col, unescapeValue(values[i]))
	}
	return rec, nil
}

// Row quoting failures, wrapped into a FormatError by the caller.
var (
	errRowQuote        = errors.New("data row does not start with a quoted value")
	errRowSeparator    = errors.New("malformed quoting: expected \",\" between values")
	errRowUnterminated = errors.New("unterminated quoted value")
)

// splitRow splits a data row into its still-escaped values. Values are
// separated by quote-comma-quote boundaries; a backslash escapes the byte
// after it, so escaped quotes never terminate a value.
func splitRow(line string) ([]string, error) {
	if line == "" || line[0] != '"' {
		return nil, errRowQuote
	}

	var values []string
	start := 1
	for i := 1; i < len(line); {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			values = append(values, line[start:i])
			if i == len(line)-1 {
				return values, nil
			}
			if i+2 < len(line) && line[i+1] == ',' && line[i+2] == '"' {
				i += 3
				start = i
				continue
			}
			return nil, errRowSeparator
		default:
			i++
		}
	}
	return nil, errRowUnterminated
}
