package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// pipeDevice hands out the read side of an io.Pipe; closing it unblocks Read.
type pipeDevice struct {
	pr     *io.PipeReader
	closed bool
}

func (d *pipeDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	return d, nil
}

func (d *pipeDevice) Read(p []byte) (int, error) { return d.pr.Read(p) }

func (d *pipeDevice) Close() error {
	d.closed = true
	return d.pr.Close()
}

type deniedDevice struct{}

func (deniedDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	return nil, errors.New("NotAllowedError")
}

func TestRecorderStopConcatenatesChunks(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	dev := &pipeDevice{pr: pr}
	previews := NewPreviews()
	rec := NewRecorder(dev, previews)

	require.NoError(t, rec.Start(context.Background()))
	assert.True(t, rec.IsRecording())

	_, err := pw.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = pw.Write([]byte("world"))
	require.NoError(t, err)

	blob, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(blob.Data))
	assert.Equal(t, AudioContentType, blob.ContentType)
	assert.True(t, dev.closed, "stream must be released on stop")
	assert.False(t, rec.IsRecording())
	assert.NotEmpty(t, rec.Preview())
	assert.Equal(t, 1, previews.Len())

	_, err = rec.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)

	rec.Delete()
	assert.Equal(t, 0, previews.Len())
	assert.Nil(t, rec.Recording())
}

func TestRecorderPermissionDenied(t *testing.T) {
	rec := NewRecorder(deniedDevice{}, nil)
	err := rec.Start(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, rec.IsRecording())
}

func TestRecorderStartTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, _ := io.Pipe()
	rec := NewRecorder(&pipeDevice{pr: pr}, nil)
	require.NoError(t, rec.Start(context.Background()))
	assert.ErrorIs(t, rec.Start(context.Background()), ErrAlreadyRecording)
	require.NoError(t, rec.Close())
}

func TestRecorderCloseReleasesStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, _ := io.Pipe()
	dev := &pipeDevice{pr: pr}
	previews := NewPreviews()
	rec := NewRecorder(dev, previews)
	require.NoError(t, rec.Start(context.Background()))

	require.NoError(t, rec.Close())
	assert.True(t, dev.closed)
	assert.Equal(t, 0, previews.Len())
	require.NoError(t, rec.Close())
}

func TestRecorderMaxBytes(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewRecorder(&ReaderDevice{R: bytes.NewReader(bytes.Repeat([]byte("a"), 100))}, nil)
	rec.MaxBytes = 10
	require.NoError(t, rec.Start(context.Background()))

	select {
	case <-rec.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop at the byte limit")
	}
	blob, err := rec.Stop()
	require.NoError(t, err)
	assert.Len(t, blob.Data, 11, "one byte past the limit is kept so size checks reject the clip")
	assert.True(t, rec.OverLimit())

	rec.Delete()
	assert.False(t, rec.OverLimit())
}

func TestRecorderExactlyMaxBytes(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := NewRecorder(&ReaderDevice{R: bytes.NewReader(bytes.Repeat([]byte("a"), 10))}, nil)
	rec.MaxBytes = 10
	require.NoError(t, rec.Start(context.Background()))

	select {
	case <-rec.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop at end of stream")
	}
	blob, err := rec.Stop()
	require.NoError(t, err)
	assert.Len(t, blob.Data, 10)
	assert.False(t, rec.OverLimit())
}

// dripReader yields one byte at a time and has no Close method.
type dripReader struct {
	every time.Duration
}

func (d dripReader) Read(p []byte) (int, error) {
	time.Sleep(d.every)
	p[0] = 'x'
	return 1, nil
}

func TestRecorderMaxDurationWithoutCloser(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &ReaderDevice{R: dripReader{every: 20 * time.Millisecond}}
	rec := NewRecorder(dev, nil)
	rec.MaxDuration = 2 * time.Second
	rec.tickEvery = 10 * time.Millisecond
	require.NoError(t, rec.Start(context.Background()))

	select {
	case <-rec.Done():
	case <-time.After(time.Second):
		t.Fatal("capture kept running past the duration limit")
	}
	assert.Equal(t, 2*time.Second, rec.Elapsed())

	blob, err := rec.Stop()
	require.NoError(t, err)
	size := blob.Size()

	// device is free again and nothing else is read into the finished clip
	s, err := dev.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, size, rec.Recording().Size())
}

func TestRecorderMaxDuration(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, _ := io.Pipe()
	dev := &pipeDevice{pr: pr}
	rec := NewRecorder(dev, nil)
	rec.MaxDuration = 3 * time.Second
	rec.tickEvery = 5 * time.Millisecond
	require.NoError(t, rec.Start(context.Background()))

	select {
	case <-rec.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop at the duration limit")
	}
	assert.True(t, dev.closed)
	assert.Equal(t, 3*time.Second, rec.Elapsed())

	_, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, rec.Elapsed(), "elapsed freezes on stop")
}

func TestReaderDeviceIsExclusive(t *testing.T) {
	dev := &ReaderDevice{R: bytes.NewReader(nil)}
	s, err := dev.Open(context.Background())
	require.NoError(t, err)

	_, err = dev.Open(context.Background())
	assert.ErrorIs(t, err, ErrDeviceBusy)

	require.NoError(t, s.Close())
	s, err = dev.Open(context.Background())
	require.NoError(t, err)
	_ = s.Close()

	_, err = (&ReaderDevice{}).Open(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestPhotoPicker(t *testing.T) {
	previews := NewPreviews()
	p := NewPhotoPicker(previews)

	_, err := p.Select("notes.txt", "text/plain", []byte("hi"))
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Nil(t, p.Selected())

	_, err = p.Select("a.jpg", "image/jpeg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	first := p.Preview()

	png := []byte("\x89PNG\r\n\x1a\n0000")
	f, err := p.Select("b.png", "", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)
	assert.NotEqual(t, first, p.Preview())
	assert.Equal(t, 1, previews.Len(), "replaced preview must be revoked")

	_, err = p.Select("c.pdf", "application/pdf", nil)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, "b.png", p.Selected().Name)

	p.Clear()
	assert.Nil(t, p.Selected())
	assert.Equal(t, 0, previews.Len())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(0))
	assert.Equal(t, "1:05", FormatElapsed(65*time.Second))
}
