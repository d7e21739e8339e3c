// Package store persists trained models.
package store

import (
	"context"
	"errors"

	"github.com/bobonovski/fastlda/model"
)

var (
	ErrCorruptModel  = errors.New("store: corrupt model")
	ErrModelNotFound = errors.New("store: model not found")
)

// Store saves and loads model snapshots.
type Store interface {
	Save(ctx context.Context, s *model.Snapshot) error
	// Load returns the snapshot of run id, or the latest one when id
	// is empty.
	Load(ctx context.Context, id string) (*model.Snapshot, error)
	Close() error
}

// checked validates a loaded snapshot
func checked(s *model.Snapshot) (*model.Snapshot, error) {
	if err := s.Validate(); err != nil {
		return nil, errors.Join(ErrCorruptModel, err)
	}
	return s, nil
}
