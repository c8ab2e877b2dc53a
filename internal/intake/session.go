package intake

import (
	"context"
	"sync"

	"repair-intake/internal/form"
	"repair-intake/internal/media"
)

// Session is one form instance. At most one submission runs at a time.
type Session struct {
	// Recorder and Picker are optional capture widgets. When set, their
	// current media is used unless a blob was attached directly.
	Recorder *media.Recorder
	Picker   *media.PhotoPicker

	svc *Service

	mu     sync.Mutex
	state  State
	data   form.Data
	voice  *media.Blob
	photo  *media.File
	errors form.Errors
	result *Result
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Form() form.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Session) SetForm(d form.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
}

func (s *Session) AttachVoice(b *media.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = b
}

func (s *Session) AttachPhoto(f *media.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photo = f
}

// Errors returns the field errors of the last validation.
func (s *Session) Errors() form.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Result returns the last submit result, or nil.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Submit runs the pipeline once. It only starts from StateIdle.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	case StateSuccess:
		s.mu.Unlock()
		return Result{}, ErrCompleted
	}
	s.state = StateSubmitting
	sub := s.snapshot()
	s.mu.Unlock()

	res := s.svc.process(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &res
	s.errors = res.Errors
	if res.Outcome == OutcomeSuccess {
		s.state = StateSuccess
	} else {
		// Failed is reported through the result only; the form stays editable.
		s.state = StateIdle
	}
	return res, nil
}

func (s *Session) snapshot() Submission {
	sub := Submission{Form: s.data, Voice: s.voice, Photo: s.photo}
	if sub.Voice == nil && s.Recorder != nil {
		sub.Voice = s.Recorder.Recording()
	}
	if sub.Photo == nil && s.Picker != nil {
		sub.Photo = s.Picker.Selected()
	}
	return sub
}

// NewRequest clears the completed form and its media.
func (s *Session) NewRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return
	}
	s.data = form.New()
	s.voice = nil
	s.photo = nil
	s.errors = nil
	s.result = nil
	if s.Recorder != nil {
		s.Recorder.Delete()
	}
	if s.Picker != nil {
		s.Picker.Clear()
	}
	s.state = StateIdle
}

// Close releases capture devices and previews.
func (s *Session) Close() error {
	var err error
	if s.Recorder != nil {
		err = s.Recorder.Close()
	}
	if s.Picker != nil {
		_ = s.Picker.Close()
	}
	return err
}
