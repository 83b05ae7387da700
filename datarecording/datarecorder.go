// Package datarecording stores simulation records in a database.
package datarecording

import (
	"errors"
	"fmt"
	"reflect"
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and releases the database.
	Close() error
}

// Recorder backends.
const (
	TypeSQLite     = "sqlite"
	TypeClickHouse = "clickhouse"
)

// RecorderConfig selects and configures a recorder backend.
type RecorderConfig struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	BatchSize int    `yaml:"batch_size"`
}

// NewWithConfig creates the recorder described by the config.
func NewWithConfig(cfg RecorderConfig) (DataRecorder, error) {
	switch cfg.Type {
	case TypeSQLite, "":
		return newSQLiteWriter(cfg.Path, cfg.BatchSize)
	case TypeClickHouse:
		return newClickHouseWriter(cfg)
	default:
		return nil, fmt.Errorf("datarecording: unknown recorder type %q",
			cfg.Type)
	}
}

var errInvalidEntry = errors.New("datarecording: entry is invalid")

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", errInvalidEntry, entry)
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s has kind %s",
				errInvalidEntry, field.Name, field.Type.Kind())
		}
	}

	return nil
}

func fieldValues(entry any) []any {
	v := reflect.ValueOf(entry)
	values := make([]any, 0, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		values = append(values, v.Field(i).Interface())
	}

	return values
}

type table struct {
	structType reflect.Type
	entries    []any
}
