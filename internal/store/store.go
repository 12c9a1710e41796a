// Package store is the sole gatekeeper of the flat word file. Every read or
// write of word records goes through it, guarded by an advisory file lock so
// that the web form, the bot and the push cycle can share one file safely.
package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/example/wordpusher/pkg/models"
)

const (
	// BackupSuffix is appended to the store path for the rewrite backup
	BackupSuffix = ".backup"

	fieldsPerRecord  = 5
	defaultLockTries = 3
	defaultLockDelay = 100 * time.Millisecond
)

// Store manages a single flat CSV file of word records
type Store struct {
	path       string
	backupPath string
	lockTries  int
	lockDelay  time.Duration
}

// New creates a store for the given file path. The file itself is created
// lazily on first access.
func New(path string) *Store {
	return &Store{
		path:       path,
		backupPath: path + BackupSuffix,
		lockTries:  defaultLockTries,
		lockDelay:  defaultLockDelay,
	}
}

// Path returns the live file path
func (s *Store) Path() string { return s.path }

// BackupPath returns the path the rewrite backup is written to
func (s *Store) BackupPath() string { return s.backupPath }

// ensureFile creates the word file empty if it does not exist
func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat word file: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create word file: %w", err)
	}
	return f.Close()
}

// withLock runs fn while holding the advisory lock on the word file.
// Acquisition is retried with exponential delay; exhaustion maps to
// ErrStorageUnavailable.
func (s *Store) withLock(exclusive bool, fn func() error) error {
	if err := s.ensureFile(); err != nil {
		return err
	}

	fl := flock.New(s.path)
	defer fl.Close()

	delay := s.lockDelay
	for attempt := 1; attempt <= s.lockTries; attempt++ {
		var ok bool
		var err error
		if exclusive {
			ok, err = fl.TryLock()
		} else {
			ok, err = fl.TryRLock()
		}
		if err != nil {
			return fmt.Errorf("failed to acquire file lock: %w", err)
		}
		if ok {
			err = fn()
			if uerr := fl.Unlock(); uerr != nil && err == nil {
				err = fmt.Errorf("failed to release file lock: %w", uerr)
			}
			return err
		}
		if attempt < s.lockTries {
			log.Printf("word store: lock busy, retrying %d/%d", attempt, s.lockTries)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return ErrStorageUnavailable
}

// parseRow converts one CSV row into a record. The field count is fixed;
// anything else is malformed and reported as a ParseError.
func parseRow(line int, fields []string) (models.WordRecord, *ParseError) {
	var rec models.WordRecord
	if len(fields) != fieldsPerRecord {
		return rec, &ParseError{Line: line, Fields: fields,
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldsPerRecord, len(fields))}
	}
	term := strings.TrimSpace(fields[0])
	if term == "" {
		return rec, &ParseError{Line: line, Fields: fields, Reason: "empty term"}
	}
	added, err := time.Parse(models.DateLayout, fields[2])
	if err != nil {
		return rec, &ParseError{Line: line, Fields: fields, Reason: "bad added date"}
	}
	reviewed, err := time.Parse(models.DateLayout, fields[3])
	if err != nil {
		return rec, &ParseError{Line: line, Fields: fields, Reason: "bad last-reviewed date"}
	}
	stage, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil || stage < 0 {
		return rec, &ParseError{Line: line, Fields: fields, Reason: "bad review stage"}
	}
	rec = models.WordRecord{
		Term:         term,
		Definition:   fields[1],
		AddedDate:    added,
		LastReviewed: reviewed,
		ReviewStage:  stage,
	}
	return rec, nil
}

func recordFields(rec models.WordRecord) []string {
	return []string{
		rec.Term,
		rec.Definition,
		rec.AddedDate.Format(models.DateLayout),
		rec.LastReviewed.Format(models.DateLayout),
		strconv.Itoa(rec.ReviewStage),
	}
}

// parseAll splits the file into well-formed records and malformed rows.
// Each record remembers its line number and each malformed row its raw
// text, so a later rewrite can put every row back where it was.
func parseAll(data []byte) ([]models.WordRecord, []int, []*ParseError) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // field count is validated per row

	var records []models.WordRecord
	var lines []int
	var malformed []*ParseError
	line := 0
	for {
		start := reader.InputOffset()
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		raw := strings.TrimRight(string(data[start:reader.InputOffset()]), "\r\n")
		if err != nil {
			malformed = append(malformed, &ParseError{Line: line, Raw: raw, Reason: err.Error()})
			if reader.InputOffset() == start {
				break
			}
			continue
		}
		rec, perr := parseRow(line, fields)
		if perr != nil {
			perr.Raw = raw
			malformed = append(malformed, perr)
			continue
		}
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, malformed
}

// ReadAll returns every well-formed record plus diagnostics for malformed
// rows. Malformed rows never abort the read; what to do with them is the
// caller's decision.
func (s *Store) ReadAll() ([]models.WordRecord, []*ParseError, error) {
	var records []models.WordRecord
	var malformed []*ParseError

	err := s.withLock(false, func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("failed to read word file: %w", err)
		}
		records, _, malformed = parseAll(data)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return records, malformed, nil
}

// Append adds one record to the end of the file. The row is serialized
// first and written with a single call, so either the whole row lands or
// none of it does.
func (s *Store) Append(rec models.WordRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(recordFields(rec)); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.withLock(true, func() error {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open word file for append: %w", err)
		}
		defer f.Close()
		if _, err := f.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
		return nil
	})
}

// AppendUnique appends the record unless its term is already present.
// The check and the append run under one exclusive lock, so two callers
// inside this process cannot race each other into a duplicate.
func (s *Store) AppendUnique(rec models.WordRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(recordFields(rec)); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.withLock(true, func() error {
		f, err := os.OpenFile(s.path, os.O_RDWR, 0644)
		if err != nil {
			return fmt.Errorf("failed to open word file: %w", err)
		}
		defer f.Close()
		found, err := scanForTerm(f, rec.Term)
		if err != nil {
			return err
		}
		if found {
			return ErrDuplicateTerm
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("failed to seek word file: %w", err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to append record: %w", err)
		}
		return nil
	})
}

// Exists reports whether a term is already in the store, case-insensitively.
// The file is streamed row by row rather than buffered whole.
func (s *Store) Exists(term string) (bool, error) {
	var found bool
	err := s.withLock(false, func() error {
		f, err := os.Open(s.path)
		if err != nil {
			return fmt.Errorf("failed to open word file: %w", err)
		}
		defer f.Close()
		found, err = scanForTerm(f, term)
		return err
	})
	return found, err
}

func scanForTerm(r io.Reader, term string) (bool, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			// Malformed rows cannot match; skip them like ReadAll does.
			continue
		}
		if len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), term) {
			return true, nil
		}
	}
}

// fileRow is one line destined for the word file: either a parsed record's
// fields, or a malformed row carried as its original text.
type fileRow struct {
	line   int
	fields []string
	raw    string
}

func recordRows(records []models.WordRecord) []fileRow {
	rows := make([]fileRow, len(records))
	for i, rec := range records {
		rows[i] = fileRow{line: i + 1, fields: recordFields(rec)}
	}
	return rows
}

// mergeRows interleaves the updated records with the malformed rows that
// must survive the rewrite. While the record count is unchanged every row
// keeps its original line; if the transaction added or removed records the
// updated records are written in order and the malformed rows appended
// after them, still never dropped.
func mergeRows(updated []models.WordRecord, lines []int, malformed []*ParseError) []fileRow {
	rows := make([]fileRow, 0, len(updated)+len(malformed))
	if len(updated) == len(lines) {
		for i, rec := range updated {
			rows = append(rows, fileRow{line: lines[i], fields: recordFields(rec)})
		}
		for _, diag := range malformed {
			rows = append(rows, fileRow{line: diag.Line, raw: diag.Raw})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].line < rows[j].line })
		return rows
	}
	for _, rec := range updated {
		rows = append(rows, fileRow{fields: recordFields(rec)})
	}
	for _, diag := range malformed {
		rows = append(rows, fileRow{raw: diag.Raw})
	}
	return rows
}

func encodeRows(rows []fileRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if row.fields == nil {
			w.Flush()
			if err := w.Error(); err != nil {
				return nil, fmt.Errorf("failed to encode records: %w", err)
			}
			buf.WriteString(row.raw)
			buf.WriteByte('\n')
			continue
		}
		if err := w.Write(row.fields); err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAll replaces the whole file with exactly the given records. Callers
// that must carry malformed rows across a rewrite go through Transact
// instead. With createBackup the live file is copied aside first and
// restored verbatim if the rewrite fails, so the store never ends up
// shorter than before. This is atomicity-via-backup, not an atomic rename:
// a reader between failure and restore can observe the partial file.
func (s *Store) WriteAll(records []models.WordRecord, createBackup bool) error {
	return s.withLock(true, func() error {
		return s.rewriteLocked(recordRows(records), createBackup)
	})
}

// rewriteLocked performs the backup/truncate/write/restore dance. The
// caller must hold the exclusive lock. The rows are encoded before the
// backup is taken, so an encoding error never touches the live file.
func (s *Store) rewriteLocked(rows []fileRow, createBackup bool) error {
	data, err := encodeRows(rows)
	if err != nil {
		return err
	}

	if createBackup {
		if err := copyFile(s.path, s.backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	if err := s.writeFile(data); err != nil {
		if createBackup {
			if rerr := s.restoreBackup(); rerr != nil {
				return fmt.Errorf("rewrite failed (%v) and backup restore failed: %w", err, rerr)
			}
			log.Printf("word store: rewrite failed, restored %s from backup", s.path)
		}
		return err
	}
	return nil
}

func (s *Store) writeFile(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open word file for rewrite: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write word file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync word file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close word file: %w", err)
	}
	return nil
}

// restoreBackup copies the rewrite backup back over the live file
func (s *Store) restoreBackup() error {
	return copyFile(s.backupPath, s.path)
}

// TxnFunc inspects a snapshot of the store and returns the records to
// persist. Returning commit=false leaves the file untouched.
type TxnFunc func(records []models.WordRecord, malformed []*ParseError) (updated []models.WordRecord, commit bool, err error)

// Transact runs fn under one exclusive lock covering the full
// read-modify-write span. Unlike a ReadAll followed by WriteAll, a
// concurrent append cannot slip between the snapshot and the rewrite and
// be silently dropped. Malformed rows are fn's to inspect but not fn's to
// lose: on commit they are written back verbatim at their original lines.
func (s *Store) Transact(fn TxnFunc) error {
	return s.withLock(true, func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("failed to read word file: %w", err)
		}
		records, lines, malformed := parseAll(data)

		updated, commit, err := fn(records, malformed)
		if err != nil {
			return err
		}
		if !commit {
			return nil
		}
		return s.rewriteLocked(mergeRows(updated, lines, malformed), true)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
