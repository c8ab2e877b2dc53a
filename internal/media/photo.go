package media

import (
	"net/http"
	"strings"
	"sync"
)

// PhotoPicker holds at most one selected image together with its preview handle.
type PhotoPicker struct {
	Previews *Previews

	mu      sync.Mutex
	file    *File
	preview string
}

func NewPhotoPicker(previews *Previews) *PhotoPicker {
	if previews == nil {
		previews = NewPreviews()
	}
	return &PhotoPicker{Previews: previews}
}

// Select replaces the current selection. Non-image files are rejected and
// leave the previous selection untouched.
func (p *PhotoPicker) Select(name, contentType string, data []byte) (File, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return File{}, ErrNotImage
	}

	f := File{Name: name, Blob: Blob{Data: data, ContentType: contentType}}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Previews.Revoke(p.preview)
	p.file = &f
	p.preview = p.Previews.Create(f.Blob)
	return f, nil
}

func (p *PhotoPicker) Selected() *File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file
}

func (p *PhotoPicker) Preview() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preview
}

func (p *PhotoPicker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Previews.Revoke(p.preview)
	p.preview = ""
	p.file = nil
}

func (p *PhotoPicker) Close() error {
	p.Clear()
	return nil
}
