package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repair-intake/internal/media"
	"repair-intake/internal/storage"
)

const (
	FolderVoice  = "voice-recordings"
	FolderPhotos = "photos"

	DefaultMaxBytes = 10 << 20
	DefaultTimeout  = 60 * time.Second

	tokenLen = 7
)

// Client uploads media payloads to an object store under collision-resistant keys.
type Client struct {
	Store    storage.ObjectStore
	Logger   *zap.Logger
	MaxBytes int64 // 0 disables the size check
	Timeout  time.Duration

	now   func() time.Time
	token func() string
}

func NewClient(store storage.ObjectStore, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Store:    store,
		Logger:   logger.Named("upload"),
		MaxBytes: DefaultMaxBytes,
		Timeout:  DefaultTimeout,
	}
}

// Upload stores payload under folder and returns its public URL.
func (c *Client) Upload(ctx context.Context, payload media.Blob, folder, ext string) (string, error) {
	if c.Store == nil {
		return "", &Error{Kind: KindConfiguration, Message: msgConfiguration}
	}
	if c.MaxBytes > 0 && payload.Size() > c.MaxBytes {
		return "", &Error{Kind: KindSizeExceeded, Message: msgSizeExceeded}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	contentType := payload.ContentType
	if folder == FolderVoice {
		contentType = media.AudioContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := c.key(folder, ext)
	err := c.Store.Put(ctx, key, payload.Data, contentType)
	if err != nil && classify(err) == kindDuplicate {
		c.Logger.Info("object key collision, retrying with a new key", zap.String("key", key))
		key = c.key(folder, ext)
		if err = c.Store.Put(ctx, key, payload.Data, contentType); err != nil {
			return "", &Error{Kind: KindGeneric, Message: "Upload failed: " + err.Error(), Err: err}
		}
	}
	if err != nil {
		return "", newError(err)
	}

	c.Logger.Debug("object uploaded",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int64("size", payload.Size()))
	return c.Store.PublicURL(key), nil
}

// key builds <folder>/<epoch-millis>-<token>.<ext>.
func (c *Client) key(folder, ext string) string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	tok := randomToken
	if c.token != nil {
		tok = c.token
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/%d-%s.%s", folder, now().UnixMilli(), tok(), ext)
}

// randomToken returns 7 lowercase alphanumeric characters taken from a random UUID.
func randomToken() string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s[:tokenLen]
}
