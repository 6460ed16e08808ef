// Package backup writes and restores clinic database snapshots as JSONL
// files, prunes old backups, and exports the patient roster as a
// spreadsheet.
//
// A backup file holds one JSON object per line. The first line is the
// header; every following line is a record:
//
//	{"type":"header","id":"…","created_at":"…","schema_version":8}
//	{"type":"patient","data":{"id":1,"full_name":"Ana Silva",…}}
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/clinic/internal/clinic/db"
)

const (
	// FilePrefix and FileExt name every file ExportFile writes.
	FilePrefix = "clinic-"
	FileExt    = ".jsonl"

	fileTimeLayout = "20060102-150405"
)

// Record types.
const (
	TypeHeader        = "header"
	TypePatient       = "patient"
	TypePractitioner  = "practitioner"
	TypeAvailability  = "availability"
	TypeSession       = "session"
	TypeMedicalRecord = "medical_record"
	TypeUser          = "user"
)

// Header is the first line of a backup file.
type Header struct {
	Type          string    `json:"type"`
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	SchemaVersion int       `json:"schema_version"`
	AppVersion    string    `json:"app_version,omitempty"`
}

type line struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Source is what Export reads from; *db.DB satisfies it.
type Source interface {
	ExportSnapshotContext(ctx context.Context) (*db.Snapshot, error)
	SchemaVersion(ctx context.Context) (int, error)
}

// Target is what Import writes to; *db.DB satisfies it.
type Target interface {
	RestoreSnapshotContext(ctx context.Context, snap *db.Snapshot) error
}

// Result summarizes an export or import.
type Result struct {
	ID             string `json:"id" yaml:"id"`
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
	Patients       int    `json:"patients" yaml:"patients"`
	Practitioners  int    `json:"practitioners" yaml:"practitioners"`
	Availability   int    `json:"availability" yaml:"availability"`
	Sessions       int    `json:"sessions" yaml:"sessions"`
	MedicalRecords int    `json:"medical_records" yaml:"medical_records"`
	Users          int    `json:"users" yaml:"users"`
}

func resultFor(id string, snap *db.Snapshot) *Result {
	return &Result{
		ID:             id,
		Patients:       len(snap.Patients),
		Practitioners:  len(snap.Practitioners),
		Availability:   len(snap.Availability),
		Sessions:       len(snap.Sessions),
		MedicalRecords: len(snap.MedicalRecords),
		Users:          len(snap.Users),
	}
}

// Export writes a full snapshot of src to w.
func Export(ctx context.Context, src Source, w io.Writer, appVersion string, now time.Time) (*Result, error) {
	snap, err := src.ExportSnapshotContext(ctx)
	if err != nil {
		return nil, err
	}
	version, err := src.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	header := Header{
		Type:          TypeHeader,
		ID:            uuid.NewString(),
		CreatedAt:     now.UTC(),
		SchemaVersion: version,
		AppVersion:    appVersion,
	}
	if err := Write(w, header, snap); err != nil {
		return nil, err
	}
	return resultFor(header.ID, snap), nil
}

// Write encodes header and snap as JSONL.
func Write(w io.Writer, header Header, snap *db.Snapshot) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	header.Type = TypeHeader
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	emit := func(typ string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", typ, err)
		}
		return enc.Encode(line{Type: typ, Data: data})
	}
	for _, p := range snap.Patients {
		if err := emit(TypePatient, p); err != nil {
			return err
		}
	}
	for _, p := range snap.Practitioners {
		if err := emit(TypePractitioner, p); err != nil {
			return err
		}
	}
	for _, a := range snap.Availability {
		if err := emit(TypeAvailability, a); err != nil {
			return err
		}
	}
	for _, s := range snap.Sessions {
		if err := emit(TypeSession, s); err != nil {
			return err
		}
	}
	for _, r := range snap.MedicalRecords {
		if err := emit(TypeMedicalRecord, r); err != nil {
			return err
		}
	}
	for _, u := range snap.Users {
		if err := emit(TypeUser, u); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read parses a backup produced by Write.
func Read(r io.Reader) (*Header, *db.Snapshot, error) {
	decoder := json.NewDecoder(r)
	var header *Header
	snap := &db.Snapshot{}
	lineNum := 0

	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if header == nil {
			var h Header
			if err := json.Unmarshal(raw, &h); err != nil || h.Type != TypeHeader {
				return nil, nil, fmt.Errorf("line 1: missing backup header")
			}
			header = &h
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, nil, fmt.Errorf("invalid record at line %d: %w", lineNum, err)
		}
		if err := decodeRecord(snap, l); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if header == nil {
		return nil, nil, fmt.Errorf("empty backup")
	}
	return header, snap, nil
}

func decodeRecord(snap *db.Snapshot, l line) error {
	switch l.Type {
	case TypePatient:
		return appendDecoded(l.Data, &snap.Patients)
	case TypePractitioner:
		return appendDecoded(l.Data, &snap.Practitioners)
	case TypeAvailability:
		return appendDecoded(l.Data, &snap.Availability)
	case TypeSession:
		return appendDecoded(l.Data, &snap.Sessions)
	case TypeMedicalRecord:
		return appendDecoded(l.Data, &snap.MedicalRecords)
	case TypeUser:
		return appendDecoded(l.Data, &snap.Users)
	default:
		return fmt.Errorf("unknown record type %q", l.Type)
	}
}

func appendDecoded[T any](data json.RawMessage, dst *[]*T) error {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}

// ExportFile writes a backup into dir, named after now, and returns its
// path. The file appears atomically.
func ExportFile(ctx context.Context, src Source, dir, appVersion string, now time.Time) (*Result, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	path := filepath.Join(dir, FilePrefix+now.UTC().Format(fileTimeLayout)+FileExt)

	tmpPath := path + ".tmp"
	// #nosec G304 - path built from configured backup dir
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	res, err := Export(ctx, src, f, appVersion, now)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}
	res.Path = path
	return res, nil
}

// ImportFile restores the backup at path into dst, which must hold no
// clinical data. Backups from a newer schema are refused.
func ImportFile(ctx context.Context, dst Target, path string, currentSchema int) (*Result, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	header, snap, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse backup %s: %w", path, err)
	}
	if header.SchemaVersion > currentSchema {
		return nil, fmt.Errorf("backup %s: %w: backup=%d code=%d", path, db.ErrSchemaTooNew, header.SchemaVersion, currentSchema)
	}
	if err := dst.RestoreSnapshotContext(ctx, snap); err != nil {
		return nil, err
	}
	res := resultFor(header.ID, snap)
	res.Path = path
	return res, nil
}

// List returns the backup files in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExt) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	// Names embed a sortable UTC timestamp.
	sort.Strings(files)
	return files, nil
}

// Prune deletes all but the newest keep backups in dir and returns the
// removed paths. keep <= 0 keeps everything.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(files) <= keep {
		return nil, nil
	}
	stale := files[:len(files)-keep]
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return stale, nil
}
