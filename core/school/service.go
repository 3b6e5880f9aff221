package school

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

// RemoteWriteTimeout bounds a single asynchronous remote write.
var RemoteWriteTimeout = 30 * time.Second

// Service owns the aggregate. Every mutation goes through Commit (or Dispatch):
// the in-memory aggregate is replaced, written synchronously to the local store and,
// when connected, asynchronously to the remote store.
type Service struct {
	mu     sync.RWMutex
	data   SchoolData
	local  core.KeyValueStore
	remote RemoteStore // nil in local-only mode
	logger core.Logger

	commitSeq uint64 // guarded by mu

	remoteMu sync.Mutex
	savedSeq uint64 // last commit written remotely, guarded by remoteMu
	inflight atomic.Int64
	wg       sync.WaitGroup
}

// NewService returns a Service holding the default aggregate until Load is called.
// `remote` may be nil (local-only mode).
func NewService(local core.KeyValueStore, remote RemoteStore, logger core.Logger) *Service {
	return &Service{
		data:   DefaultData(),
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Connected reports whether a remote store is configured.
func (svc *Service) Connected() bool { return svc.remote != nil }

// Load reads the aggregate: from the remote document when connected and present,
// otherwise from the local store. Missing data falls back to defaults.
// A malformed document also falls back to defaults but is left untouched in its store
// until the next commit. A malformed remote document falls back to the local copy first.
// Legacy cleartext passwords are hashed and the upgraded aggregate is committed.
func (svc *Service) Load(ctx context.Context) error {
	localRaw, err := svc.local.Get(ctx, LocalDataKey)
	if err != nil && errors.Cause(err) != core.ErrKeyNotFound {
		return errors.Wrap(err, "reading local store")
	}

	raw := localRaw
	fromRemote, seedRemote := false, false
	if svc.remote != nil {
		doc, ok, err := svc.remote.Load(ctx)
		switch {
		case err != nil:
			svc.logger.Warn("loading remote school data, using local copy", errors.Wrap(err, "remote load"))
		case ok:
			raw, fromRemote = doc, true
		default:
			seedRemote = true
		}
	}

	data, err := Decode(raw, DefaultData())
	if err != nil && fromRemote {
		svc.logger.Warn("malformed remote school data, using local copy", err)
		data, err = Decode(localRaw, DefaultData())
	}
	malformed := err != nil
	if malformed {
		svc.logger.Warn("malformed school data, using defaults", err)
	}
	upgraded, err := upgradeLegacyPasswords(&data)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if malformed {
		svc.data = data
		return nil
	}
	if upgraded || seedRemote {
		return svc.commitLocked(ctx, data)
	}
	svc.data = data
	return svc.writeLocal(ctx, data)
}

// Current returns a copy of the aggregate.
func (svc *Service) Current() SchoolData {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return Clone(svc.data)
}

// Commit replaces the whole aggregate. See Service.
// A local store failure is returned; the in-memory aggregate is not rolled back.
// Remote failures are only logged.
func (svc *Service) Commit(ctx context.Context, data SchoolData) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.commitLocked(ctx, Clone(data))
}

// Dispatch applies `patches` to the current aggregate and commits the result, atomically.
func (svc *Service) Dispatch(ctx context.Context, patches ...Patch) (SchoolData, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	next, err := Apply(svc.data, patches...)
	if err != nil {
		return Clone(svc.data), err
	}
	if err := svc.commitLocked(ctx, next); err != nil {
		return Clone(next), err
	}
	return Clone(next), nil
}

func (svc *Service) commitLocked(ctx context.Context, data SchoolData) error {
	raw, err := Encode(data)
	if err != nil {
		return err
	}
	svc.data = data
	if err := svc.local.Set(ctx, LocalDataKey, raw); err != nil {
		return errors.Wrap(err, "writing local store")
	}
	svc.commitSeq++
	if svc.remote != nil {
		svc.pushRemote(svc.commitSeq, raw)
	}
	return nil
}

func (svc *Service) writeLocal(ctx context.Context, data SchoolData) error {
	raw, err := Encode(data)
	if err != nil {
		return err
	}
	return errors.Wrap(svc.local.Set(ctx, LocalDataKey, raw), "writing local store")
}

// pushRemote writes `raw` to the remote store in the background.
// A write is dropped when a later commit already reached the remote store.
func (svc *Service) pushRemote(seq uint64, raw []byte) {
	svc.inflight.Add(1)
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		defer svc.inflight.Add(-1)

		svc.remoteMu.Lock()
		defer svc.remoteMu.Unlock()
		if seq <= svc.savedSeq {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), RemoteWriteTimeout)
		defer cancel()
		if err := svc.remote.Save(ctx, raw); err != nil {
			svc.logger.Error("saving school data to remote store", errors.Wrap(err, "remote save"))
			return
		}
		svc.savedSeq = seq
	}()
}

// Flush waits for the in-flight remote writes.
func (svc *Service) Flush() {
	svc.wg.Wait()
}

// Subscribe keeps the aggregate in sync with the remote document until ctx is done.
// Pushed documents are reconciled, replace the aggregate and are mirrored to the
// local store, but never written back to the remote store.
func (svc *Service) Subscribe(ctx context.Context) error {
	if svc.remote == nil {
		return ErrNoRemoteConfig
	}
	return svc.remote.Subscribe(ctx, func(doc []byte) { svc.applyRemote(ctx, doc) })
}

func (svc *Service) applyRemote(ctx context.Context, doc []byte) {
	data, err := Decode(doc, DefaultData())
	if err != nil {
		svc.logger.Warn("malformed remote school data, ignored", err)
		return
	}
	if _, err := upgradeLegacyPasswords(&data); err != nil {
		svc.logger.Error("hashing legacy passwords", err)
		return
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	// commits increment inflight under mu, so a pending write of ours is seen here
	// and supersedes this version
	if svc.inflight.Load() > 0 {
		return
	}
	svc.data = data
	if err := svc.writeLocal(ctx, data); err != nil {
		svc.logger.Error("mirroring remote school data", err)
	}
}

func upgradeLegacyPasswords(data *SchoolData) (bool, error) {
	var upgraded bool
	for i := range data.Users {
		changed, err := data.Users[i].UpgradeLegacyPassword()
		if err != nil {
			return false, errors.Wrapf(err, "hashing password of user %s", data.Users[i].ID)
		}
		upgraded = upgraded || changed
	}
	return upgraded, nil
}
