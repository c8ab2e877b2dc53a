package media

import (
	"errors"
	"fmt"
	"time"
)

const (
	// AudioContentType is the type every finished recording is tagged with.
	AudioContentType = "audio/webm"

	// AdvisoryLimit is the size communicated to users for attachments.
	AdvisoryLimit = 10 << 20

	DefaultMaxDuration = 5 * time.Minute
)

var (
	ErrPermissionDenied = errors.New("unable to access microphone, please check your permissions")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrNotImage         = errors.New("selected file is not an image")
	ErrNoDevice         = errors.New("no audio device")
	ErrDeviceBusy       = errors.New("audio device busy")
)

// Blob is an in-memory binary payload with its declared content type.
type Blob struct {
	Data        []byte
	ContentType string
}

func (b Blob) Size() int64 { return int64(len(b.Data)) }

// File is a user-selected file.
type File struct {
	Name string
	Blob
}

// FormatElapsed renders a duration as m:ss.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
