// Package remote opens the remote store selected by a school.RemoteConfig.
package remote

import (
	"context"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/remote/firestoredoc"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/remote/redisdoc"
)

// Open connects to the remote store of `rc`.
func Open(ctx context.Context, rc school.RemoteConfig) (school.RemoteStore, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var (
		store school.RemoteStore
		err   error
	)
	switch rc.Provider {
	case school.ProviderRedis:
		store, err = redisdoc.New(ctx, rc)
	case school.ProviderFirestore:
		store, err = firestoredoc.New(ctx, rc)
	default:
		return nil, errors.Errorf("unknown remote provider %q", rc.Provider)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
