package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/orbit/internal/client/client"
)

type memRepo struct {
	mu     sync.Mutex
	data   map[string][]byte
	ops    []string
	setErr error
	getErr error
	delErr error
}

func newMemRepo() *memRepo {
	return &memRepo{data: map[string][]byte{}}
}

func (r *memRepo) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	v, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (r *memRepo) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "set "+key)
	if r.setErr != nil {
		return r.setErr
	}
	r.data[key] = append([]byte(nil), value...)
	return nil
}

func (r *memRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "delete "+key)
	if r.delErr != nil {
		return r.delErr
	}
	delete(r.data, key)
	return nil
}

func (r *memRepo) has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[key]
	return ok
}

func (r *memRepo) takeOps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := r.ops
	r.ops = nil
	return ops
}

// fakeRefresher answers Refresh from fn. When gate is non-nil every call
// blocks on it after announcing itself on entered.
type fakeRefresher struct {
	calls   int32
	tokens  chan string
	entered chan struct{}
	gate    chan struct{}
	fn      func(refreshToken string) (*client.AuthResult, error)
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*client.AuthResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.tokens != nil {
		f.tokens <- refreshToken
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.fn(refreshToken)
}

func (f *fakeRefresher) count() int32 {
	return atomic.LoadInt32(&f.calls)
}
