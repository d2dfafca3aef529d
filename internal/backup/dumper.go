package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"dormitory-backend/internal/db"
	"dormitory-backend/internal/model"
)

// Dumper writes and replays full database dumps.
type Dumper interface {
	// Extension is the file extension of the dump format, without the dot.
	Extension() string
	Dump(ctx context.Context, w io.Writer) error
	Restore(ctx context.Context, r io.Reader) error
}

// pgDumper shells out to the PostgreSQL client tools and produces plain SQL.
// The backups table is left out so restoring never rewrites backup history.
type pgDumper struct {
	pgDump string
	psql   string
	dsn    string
}

func (d *pgDumper) Extension() string { return "sql" }

func (d *pgDumper) Dump(ctx context.Context, w io.Writer) error {
	cmd := exec.CommandContext(ctx, d.pgDump,
		"--clean", "--if-exists", "--no-owner", "--no-privileges",
		"--exclude-table=backups",
		"--dbname="+d.dsn,
	)
	return run(cmd, nil, w)
}

func (d *pgDumper) Restore(ctx context.Context, r io.Reader) error {
	cmd := exec.CommandContext(ctx, d.psql,
		"--quiet", "--single-transaction",
		"--set=ON_ERROR_STOP=1",
		"--dbname="+d.dsn,
	)
	return run(cmd, r, io.Discard)
}

func run(cmd *exec.Cmd, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", cmd.Path, err)
		}
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, msg)
	}
	return nil
}

// snapshot is the JSON document written by snapshotDumper.
type snapshot struct {
	Version   int                         `json:"version"`
	CreatedAt time.Time                   `json:"created_at"`
	Tables    map[string][]map[string]any `json:"tables"`
}

const (
	snapshotVersion = 1
	restoreBatch    = 100
)

// snapshotDumper copies every migrated table except backups into a JSON
// document. Rows are read as column maps so hidden columns such as password
// hashes survive the round trip.
type snapshotDumper struct {
	db  *gorm.DB
	now func() time.Time
}

func (d *snapshotDumper) Extension() string { return "json" }

// tables returns the parsed schema of every snapshot table in restore order.
func (d *snapshotDumper) tables() ([]*schema.Schema, error) {
	var tables []*schema.Schema
	for _, m := range db.Models() {
		if _, ok := m.(*model.Backup); ok {
			continue
		}
		stmt := &gorm.Statement{DB: d.db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", m, err)
		}
		tables = append(tables, stmt.Schema)
	}
	return tables, nil
}

func (d *snapshotDumper) Dump(ctx context.Context, w io.Writer) error {
	tables, err := d.tables()
	if err != nil {
		return err
	}

	snap := snapshot{Version: snapshotVersion, CreatedAt: d.now().UTC(), Tables: make(map[string][]map[string]any, len(tables))}
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			name := table.Table
			var rows []map[string]any
			if err := tx.Table(name).Find(&rows).Error; err != nil {
				return fmt.Errorf("failed to read table %s: %w", name, err)
			}
			if rows == nil {
				rows = []map[string]any{}
			}
			snap.Tables[name] = rows
		}
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	return enc.Encode(snap)
}

func (d *snapshotDumper) Restore(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var snap snapshot
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	tables, err := d.tables()
	if err != nil {
		return err
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := len(tables) - 1; i >= 0; i-- {
			if err := tx.Exec("DELETE FROM " + tx.Statement.Quote(tables[i].Table)).Error; err != nil {
				return fmt.Errorf("failed to clear table %s: %w", tables[i].Table, err)
			}
		}
		for _, table := range tables {
			name := table.Table
			rows := snap.Tables[name]
			if len(rows) == 0 {
				continue
			}
			timeColumns := timeColumnsOf(table)
			for _, row := range rows {
				if err := normalize(row, timeColumns); err != nil {
					return fmt.Errorf("table %s: %w", name, err)
				}
			}
			for start := 0; start < len(rows); start += restoreBatch {
				batch := rows[start:min(start+restoreBatch, len(rows))]
				if err := tx.Table(name).Create(&batch).Error; err != nil {
					return fmt.Errorf("failed to restore table %s: %w", name, err)
				}
			}
		}
		return nil
	})
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	deletedAtType = reflect.TypeOf(gorm.DeletedAt{})
)

// timeColumnsOf lists the columns of a table that hold timestamps.
func timeColumnsOf(table *schema.Schema) map[string]bool {
	columns := make(map[string]bool)
	for _, field := range table.Fields {
		if field.DBName == "" {
			continue
		}
		t := field.IndirectFieldType
		if field.DataType == schema.Time || t == timeType || t == deletedAtType {
			columns[field.DBName] = true
		}
	}
	return columns
}

// normalize turns decoded JSON values back into driver values. Timestamps
// come back as time.Time so the driver stores them in its own format.
func normalize(row map[string]any, timeColumns map[string]bool) error {
	for k, v := range row {
		switch v := v.(type) {
		case json.Number:
			if i, err := v.Int64(); err == nil {
				row[k] = i
			} else if f, err := v.Float64(); err == nil {
				row[k] = f
			}
		case string:
			if !timeColumns[k] {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return fmt.Errorf("column %s: %w", k, err)
			}
			row[k] = t.UTC()
		}
	}
	return nil
}
