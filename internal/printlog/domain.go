// Package printlog imports print-server log files into normalized print
// events.
package printlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fruivita/sci/internal/shared"
)

var (
	// ErrNotFound indicates a lookup found no row.
	ErrNotFound = fmt.Errorf("printlog: %w", shared.ErrNotFound)
	// ErrDuplicate indicates a uniqueness constraint rejected an insert.
	ErrDuplicate = fmt.Errorf("printlog: %w", shared.ErrDuplicate)
	// ErrInvalidLine indicates a log line failed validation.
	ErrInvalidLine = errors.New("printlog: invalid line")
)

// Entity enumerates the lookup tables populated by the importer.
type Entity int

// Lookup entities, deduplicated by natural key.
const (
	EntityServer Entity = iota + 1
	EntityClient
	EntityPrinter
	EntityUser
)

func (e Entity) String() string {
	switch e {
	case EntityServer:
		return "server"
	case EntityClient:
		return "client"
	case EntityPrinter:
		return "printer"
	case EntityUser:
		return "user"
	default:
		return fmt.Sprintf("entity(%d)", int(e))
	}
}

// Record is a validated log line.
type Record struct {
	Line                 string
	Server               string
	Date                 time.Time
	TimeOfDay            time.Duration
	Filename             *string
	Username             string
	DepartmentExternalID *int64
	Client               string
	Printer              string
	FileSize             *int64
	Pages                int
	Copies               int
}

// Refs holds the resolved entity ids for one record.
type Refs struct {
	ServerID     int64
	ClientID     int64
	PrinterID    int64
	UserID       int64
	DepartmentID *int64
}

// Printing is the persisted print event. The tuple (Date, TimeOfDay,
// ClientID, PrinterID, UserID, ServerID) is unique.
type Printing struct {
	ID           int64
	Date         time.Time
	TimeOfDay    time.Duration
	Filename     *string
	FileSize     *int64
	Pages        int
	Copies       int
	ClientID     int64
	PrinterID    int64
	UserID       int64
	ServerID     int64
	DepartmentID *int64
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	FindEntity(ctx context.Context, kind Entity, key string) (int64, error)
	CreateEntity(ctx context.Context, kind Entity, key string) (int64, error)
	FindDepartment(ctx context.Context, externalID int64) (int64, error)
	InsertPrinting(ctx context.Context, p Printing) (int64, error)
}

// RepositoryPort describes repository operations used by Writer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
