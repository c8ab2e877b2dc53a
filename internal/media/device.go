package media

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// Device opens an exclusive audio stream. Only one stream may be open at a
// time; the stream must be closed to release the device.
type Device interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReaderDevice exposes an io.Reader (stdin, a file, a pipe) as a Device.
type ReaderDevice struct {
	R io.Reader

	mu   sync.Mutex
	open bool
}

func (d *ReaderDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.R == nil {
		return nil, ErrNoDevice
	}
	if d.open {
		return nil, ErrDeviceBusy
	}
	d.open = true
	return &deviceStream{dev: d}, nil
}

// deviceStream stops delivering data once closed. A Read already blocked in
// a reader without Close finishes on its own and its bytes are dropped.
type deviceStream struct {
	dev    *ReaderDevice
	once   sync.Once
	closed atomic.Bool
}

func (s *deviceStream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	n, err := s.dev.R.Read(p)
	if s.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return n, err
}

func (s *deviceStream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		if c, ok := s.dev.R.(io.Closer); ok {
			err = c.Close()
		}
		s.dev.mu.Lock()
		s.dev.open = false
		s.dev.mu.Unlock()
	})
	return err
}
