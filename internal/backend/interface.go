package backend

import (
	"context"
	"time"

	"budget/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the stores built from configuration. Remote is nil when
// sync is disabled.
type Result struct {
	Local   ports.LocalStore
	Remote  ports.RemoteStore
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config selects and configures the local and remote stores.
type Config struct {
	Local  LocalType
	Remote RemoteType

	// Local stores
	SQLiteDBPath   string
	LedgerFilePath string
	Profile        string

	// Redis
	RedisURL       string
	RedisKeyPrefix string

	// AMQP
	AMQPURL      string
	AMQPExchange string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsPollInterval       time.Duration
}

// LocalType names a local store.
type LocalType string

const (
	SQLiteLocal LocalType = "sqlite"
	FileLocal   LocalType = "file"
)

func (t LocalType) String() string { return string(t) }

// IsValid returns true if the local type is known
func (t LocalType) IsValid() bool {
	switch t {
	case SQLiteLocal, FileLocal:
		return true
	default:
		return false
	}
}

// RemoteType names a remote store.
type RemoteType string

const (
	NoRemote     RemoteType = "none"
	MemoryRemote RemoteType = "memory"
	RedisRemote  RemoteType = "redis"
	AMQPRemote   RemoteType = "amqp"
	SheetsRemote RemoteType = "sheets"
)

func (t RemoteType) String() string { return string(t) }

// IsValid returns true if the remote type is known
func (t RemoteType) IsValid() bool {
	switch t {
	case NoRemote, MemoryRemote, RedisRemote, AMQPRemote, SheetsRemote:
		return true
	default:
		return false
	}
}
