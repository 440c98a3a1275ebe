// Package ports declares the persistence collaborators of the budget
// service. Local stores live in internal/storage, remote ones under
// internal/remote.
package ports

import (
	"context"

	"budget/internal/core"
	"budget/internal/ledger"
)

type (
	// LocalStore is the durable copy of the ledger on this machine.
	LocalStore interface {
		// Load returns the stored ledger, or an empty one when nothing is
		// stored. Corrupt data also yields an empty ledger together with a
		// non-nil error the caller may log.
		Load(ctx context.Context) (*ledger.Ledger, error)
		Save(ctx context.Context, l *ledger.Ledger) error
	}

	// SelectionStore remembers the last selected month. Local stores may
	// implement it.
	SelectionStore interface {
		LoadSelection(ctx context.Context) (k core.MonthKey, ok bool, err error)
		SaveSelection(ctx context.Context, k core.MonthKey) error
	}

	// SnapshotHandler receives whole-ledger snapshots. A nil ledger means the
	// user has no remote document.
	SnapshotHandler func(l *ledger.Ledger)

	// Unsubscribe stops a subscription. It is safe to call more than once.
	Unsubscribe func()

	// RemoteStore is a per-user synchronized document.
	RemoteStore interface {
		Subscribe(ctx context.Context, userID string, fn SnapshotHandler) (Unsubscribe, error)
		// Write replaces the user's document. Best effort.
		Write(ctx context.Context, userID string, l *ledger.Ledger) error
	}
)
