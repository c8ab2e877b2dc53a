package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const chunkSize = 32 << 10

// Recorder captures one bounded audio clip at a time from a Device.
//
// The device stream is released on every exit path: Stop, a limit being
// reached, the stream ending, and Close. Releasing also halts the capture
// loop, so it ends after at most the read in flight even when the stream
// cannot be closed.
//
// When the input exceeds MaxBytes the clip keeps MaxBytes+1 bytes and
// OverLimit reports true, so a size check downstream rejects it instead of
// uploading a silently cut file.
type Recorder struct {
	Device      Device
	Previews    *Previews
	MaxDuration time.Duration
	MaxBytes    int64

	tickEvery time.Duration

	mu        sync.Mutex
	recording bool
	release   func()
	stopTick  chan struct{}
	done      chan struct{}
	chunks    [][]byte
	size      int64
	overLimit bool
	blob      *Blob
	preview   string
	wg        sync.WaitGroup

	ticks atomic.Int64
}

func NewRecorder(dev Device, previews *Previews) *Recorder {
	if previews == nil {
		previews = NewPreviews()
	}
	return &Recorder{
		Device:      dev,
		Previews:    previews,
		MaxDuration: DefaultMaxDuration,
		MaxBytes:    AdvisoryLimit,
		tickEvery:   time.Second,
	}
}

// Start acquires the device and begins accumulating chunks.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}

	stream, err := r.Device.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	halt := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(halt)
			_ = stream.Close()
		})
	}

	r.recording = true
	r.release = release
	r.stopTick = make(chan struct{})
	r.done = make(chan struct{})
	r.chunks = nil
	r.size = 0
	r.overLimit = false
	r.ticks.Store(0)

	r.wg.Add(2)
	go r.capture(stream, release, halt, r.done)
	go r.tick(release, r.stopTick, r.done)
	return nil
}

// Stop ends the recording, releases the device and returns the clip tagged
// with AudioContentType.
func (r *Recorder) Stop() (Blob, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Blob{}, ErrNotRecording
	}
	r.recording = false
	release, stopTick := r.release, r.stopTick
	r.release = nil
	r.mu.Unlock()

	release()
	close(stopTick)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	blob := Blob{Data: bytes.Join(r.chunks, nil), ContentType: AudioContentType}
	r.chunks = nil
	r.blob = &blob
	r.Previews.Revoke(r.preview)
	r.preview = r.Previews.Create(blob)
	return blob, nil
}

// Delete discards the finished recording and its preview.
func (r *Recorder) Delete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Previews.Revoke(r.preview)
	r.preview = ""
	r.blob = nil
	r.overLimit = false
	r.ticks.Store(0)
}

// Close stops any active recording and releases everything the recorder holds.
func (r *Recorder) Close() error {
	if r.IsRecording() {
		if _, err := r.Stop(); err != nil && err != ErrNotRecording {
			return err
		}
	}
	r.Delete()
	return nil
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Recording returns the last finished clip, if any.
func (r *Recorder) Recording() *Blob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blob
}

func (r *Recorder) Preview() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preview
}

// OverLimit reports whether the last capture hit MaxBytes with input to spare.
func (r *Recorder) OverLimit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overLimit
}

// Done is closed once capture has ended on its own (limit reached, stream
// exhausted) or after Stop. Nil before the first Start.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Elapsed is the cosmetic running time; it freezes on stop.
func (r *Recorder) Elapsed() time.Duration {
	return time.Duration(r.ticks.Load()) * time.Second
}

func (r *Recorder) capture(stream io.Reader, release func(), halt <-chan struct{}, done chan struct{}) {
	defer r.wg.Done()
	defer close(done)
	defer release()

	buf := make([]byte, chunkSize)
	for {
		select {
		case <-halt:
			return
		default:
		}
		n, err := stream.Read(buf)
		if n > 0 {
			if !r.appendChunk(append([]byte(nil), buf[:n]...)) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// appendChunk stores a chunk and reports whether capture should go on.
// At most MaxBytes+1 bytes are kept.
func (r *Recorder) appendChunk(chunk []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MaxBytes > 0 {
		if room := r.MaxBytes + 1 - r.size; int64(len(chunk)) > room {
			chunk = chunk[:room]
		}
	}
	if len(chunk) > 0 {
		r.chunks = append(r.chunks, chunk)
		r.size += int64(len(chunk))
	}
	if r.MaxBytes > 0 && r.size > r.MaxBytes {
		r.overLimit = true
		return false
	}
	return true
}

func (r *Recorder) tick(release func(), stop, done <-chan struct{}) {
	defer r.wg.Done()

	every := r.tickEvery
	if every <= 0 {
		every = time.Second
	}
	limit := int64(r.MaxDuration / time.Second)

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-t.C:
			if n := r.ticks.Add(1); limit > 0 && n >= limit {
				release()
				return
			}
		}
	}
}
