package testutil

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

func ctx() context.Context { return context.Background() }

// RemoteStore is an in-memory school.RemoteStore.
// Saves are recorded and can be made to fail or block.
type RemoteStore struct {
	mu       sync.Mutex
	doc      []byte
	saves    [][]byte
	saveErr  error
	loadErr  error
	gate     chan struct{}
	subs     []func([]byte)
	closed   bool
	subReady chan struct{}
}

var _ school.RemoteStore = (*RemoteStore)(nil)

func NewRemoteStore(doc []byte) *RemoteStore {
	return &RemoteStore{doc: doc, subReady: make(chan struct{})}
}

func (r *RemoteStore) Load(_ context.Context) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, false, r.loadErr
	}
	if r.doc == nil {
		return nil, false, nil
	}
	return append([]byte(nil), r.doc...), true, nil
}

func (r *RemoteStore) Save(ctx context.Context, doc []byte) error {
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.doc = append([]byte(nil), doc...)
	r.saves = append(r.saves, r.doc)
	return nil
}

func (r *RemoteStore) Subscribe(ctx context.Context, onChange func([]byte)) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.New("remote store closed")
	}
	r.subs = append(r.subs, onChange)
	idx := len(r.subs) - 1
	select {
	case <-r.subReady:
	default:
		close(r.subReady)
	}
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	r.subs[idx] = nil
	r.mu.Unlock()
	return nil
}

func (r *RemoteStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Push simulates a change of the remote document made by another writer.
func (r *RemoteStore) Push(doc []byte) {
	r.mu.Lock()
	r.doc = append([]byte(nil), doc...)
	subs := append(([]func([]byte))(nil), r.subs...)
	r.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(doc)
		}
	}
}

// Subscribed is closed once a subscription is established.
func (r *RemoteStore) Subscribed() <-chan struct{} { return r.subReady }

// Subscribers returns the number of live subscriptions.
func (r *RemoteStore) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, fn := range r.subs {
		if fn != nil {
			n++
		}
	}
	return n
}

func (r *RemoteStore) Saves() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.saves...)
}

func (r *RemoteStore) Doc() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.doc...)
}

func (r *RemoteStore) FailSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *RemoteStore) FailLoads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadErr = err
}

// Block makes saves wait until the returned function is called.
func (r *RemoteStore) Block() (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gate = gate
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.gate = nil
			r.mu.Unlock()
			close(gate)
		})
	}
}

// Logger records messages, for asserting on logged failures.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

func (l *Logger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.record("FATAL", msg) }

func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Messages...)
}
