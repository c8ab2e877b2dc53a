package media

import (
	"sync"

	"github.com/google/uuid"
)

// Previews hands out local preview handles for captured media. Every handle
// has to be revoked by whoever created it; Close revokes whatever is left.
type Previews struct {
	mu    sync.Mutex
	items map[string]Blob
}

func NewPreviews() *Previews {
	return &Previews{items: make(map[string]Blob)}
}

func (p *Previews) Create(b Blob) string {
	h := "preview:" + uuid.NewString()
	p.mu.Lock()
	p.items[h] = b
	p.mu.Unlock()
	return h
}

func (p *Previews) Get(handle string) (Blob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.items[handle]
	return b, ok
}

// Revoke releases a handle. Unknown or empty handles are ignored.
func (p *Previews) Revoke(handle string) {
	if handle == "" {
		return
	}
	p.mu.Lock()
	delete(p.items, handle)
	p.mu.Unlock()
}

// Len reports the number of live handles.
func (p *Previews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Previews) Close() {
	p.mu.Lock()
	p.items = make(map[string]Blob)
	p.mu.Unlock()
}
