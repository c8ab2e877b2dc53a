package intake

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair-intake/internal/form"
	"repair-intake/internal/media"
	"repair-intake/internal/storage"
	"repair-intake/internal/upload"
)

func TestSessionLifecycle(t *testing.T) {
	svc, _, st, _ := newTestService()
	sess := svc.NewSession()
	assert.Equal(t, StateIdle, sess.State())
	assert.Equal(t, "medium", sess.Form().Urgency)

	bad := janeDoe()
	bad.Email = "jane"
	sess.SetForm(bad)
	res, err := sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Equal(t, "Please enter a valid email address", sess.Errors()[form.FieldEmail])
	assert.Equal(t, StateIdle, sess.State())

	sess.SetForm(janeDoe())
	res, err = sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, StateSuccess, sess.State())
	assert.Empty(t, sess.Errors())

	_, err = sess.Submit(context.Background())
	assert.ErrorIs(t, err, ErrCompleted)
	assert.Len(t, st.inserted, 1)

	sess.NewRequest()
	assert.Equal(t, StateIdle, sess.State())
	assert.Equal(t, form.New(), sess.Form())
	assert.Nil(t, sess.Result())
}

func TestSessionFailureReturnsToIdle(t *testing.T) {
	svc, _, st, _ := newTestService()
	st.err = errors.New("db down")
	sess := svc.NewSession()
	sess.SetForm(janeDoe())

	res, err := sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.Equal(t, StateIdle, sess.State())

	st.err = nil
	res, err = sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
}

func TestSessionRejectsOversizedRecording(t *testing.T) {
	svc, _, st, _ := newTestService()
	objects, err := storage.NewFileStore(t.TempDir(), "repair-requests", "http://localhost")
	require.NoError(t, err)
	client := upload.NewClient(objects, nil)
	client.MaxBytes = 100
	svc.Uploader = client

	rec := media.NewRecorder(&media.ReaderDevice{R: bytes.NewReader(bytes.Repeat([]byte{1}, 150))}, nil)
	rec.MaxBytes = 100
	require.NoError(t, rec.Start(context.Background()))
	<-rec.Done()
	_, err = rec.Stop()
	require.NoError(t, err)
	require.True(t, rec.OverLimit())

	sess := svc.NewSession()
	sess.Recorder = rec
	sess.SetForm(janeDoe())
	res, err := sess.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.Equal(t, "Failed to upload voice recording: File too large. Maximum size is 10MB.", res.Message)
	var ue *upload.Error
	require.ErrorAs(t, res.Err, &ue)
	assert.Equal(t, upload.KindSizeExceeded, ue.Kind)
	assert.Empty(t, st.inserted)
}

func TestSessionRejectsConcurrentSubmit(t *testing.T) {
	svc, up, _, _ := newTestService()
	up.block = make(chan struct{})
	sess := svc.NewSession()
	sess.SetForm(janeDoe())
	sess.AttachVoice(&media.Blob{Data: []byte("voice")})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = sess.Submit(context.Background())
	}()

	require.Eventually(t, func() bool { return sess.State() == StateSubmitting }, time.Second, 5*time.Millisecond)
	_, err := sess.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(up.block)
	wg.Wait()
	assert.Equal(t, StateSuccess, sess.State())
	assert.Len(t, up.calls, 1)
}

func TestSessionUsesPickerAndClearsOnNewRequest(t *testing.T) {
	svc, up, _, _ := newTestService()
	previews := media.NewPreviews()
	picker := media.NewPhotoPicker(previews)

	sess := svc.NewSession()
	sess.Picker = picker
	sess.SetForm(janeDoe())
	_, err := picker.Select("screen.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, 1, previews.Len())

	res, err := sess.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Len(t, up.calls, 1)
	assert.Equal(t, upload.FolderPhotos, up.calls[0].folder)

	sess.NewRequest()
	assert.Nil(t, picker.Selected())
	assert.Equal(t, 0, previews.Len())
	require.NoError(t, sess.Close())
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard(time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "form-1")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "form-1")
	assert.ErrorIs(t, err, ErrInFlight)

	other, err := g.Acquire(ctx, "form-2")
	require.NoError(t, err)
	other()

	release()
	release2, err := g.Acquire(ctx, "form-1")
	require.NoError(t, err)
	release2()
}

func TestRedisGuard_Integration(t *testing.T) {
	client := NewRedisClient("localhost:6379", 0)
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	g := NewRedisGuard(client, 5*time.Second)
	key := "test-" + time.Now().Format(time.RFC3339Nano)

	release, err := g.Acquire(ctx, key)
	require.NoError(t, err)
	_, err = g.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrInFlight)

	release()
	release2, err := g.Acquire(ctx, key)
	require.NoError(t, err)
	release2()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func janeFields() map[string]string {
	return map[string]string{
		"fullName":         "Jane Doe",
		"email":            "jane@x.com",
		"phoneModel":       "iphone-15",
		"issueDescription": "screen cracked",
		"urgency":          "high",
		"formId":           "form-123",
	}
}

func TestHandleSubmitMultipart(t *testing.T) {
	svc, up, st, _ := newTestService()
	h := NewHandlers(svc, NewLocalGuard(time.Minute), 10<<20, nil)

	gif := "GIF89a\x01\x00\x01\x00\x00\x00\x00;"
	body, ct := multipartBody(t, janeFields(), map[string][2]string{
		"voiceRecording": {"memo.webm", "voice-bytes"},
		"photo":          {"crack.gif", gif},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/repair-requests", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"turnaround":"24-48 hours"`)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	require.Len(t, up.calls, 2)
	assert.Equal(t, "gif", up.calls[1].ext)
	require.Len(t, st.inserted, 1)
	assert.NotNil(t, st.inserted[0].PhotoURL)
}

func TestHandleSubmitRejectsNonImagePhoto(t *testing.T) {
	svc, up, _, _ := newTestService()
	h := NewHandlers(svc, nil, 10<<20, nil)

	body, ct := multipartBody(t, janeFields(), map[string][2]string{"photo": {"notes.txt", "plain text here"}})
	req := httptest.NewRequest(http.MethodPost, "/api/repair-requests", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, up.calls)
}

func TestHandleSubmitJSONValidation(t *testing.T) {
	svc, _, st, _ := newTestService()
	h := NewHandlers(svc, nil, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/repair-requests",
		strings.NewReader(`{"fullName":"Jane","email":"jane@x.com","issueDescription":"x","urgency":"low"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"errors":{"phoneModel":"Please select your phone model"}}`, rec.Body.String())
	assert.Empty(t, st.inserted)
}

func TestHandleSubmitStatusMapping(t *testing.T) {
	svc, up, st, _ := newTestService()
	h := NewHandlers(svc, nil, 0, nil)
	send := func() *httptest.ResponseRecorder {
		body, ct := multipartBody(t, janeFields(), map[string][2]string{"voiceRecording": {"memo.webm", "v"}})
		req := httptest.NewRequest(http.MethodPost, "/api/repair-requests", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.HandleSubmit(rec, req)
		return rec
	}

	up.errs = map[string]error{upload.FolderVoice: &upload.Error{Kind: upload.KindConfiguration, Message: "Storage not configured. Please contact support."}}
	rec := send()
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to upload voice recording: Storage not configured. Please contact support."}`, rec.Body.String())

	up.errs = nil
	st.err = errors.New("db down")
	rec = send()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to save request. Please try again."}`, rec.Body.String())
}

func TestHandleSubmitInFlightConflict(t *testing.T) {
	svc, _, st, _ := newTestService()
	guard := NewLocalGuard(time.Minute)
	h := NewHandlers(svc, guard, 0, nil)

	release, err := guard.Acquire(context.Background(), "form-123")
	require.NoError(t, err)
	defer release()

	req := httptest.NewRequest(http.MethodPost, "/api/repair-requests",
		strings.NewReader(`{"fullName":"Jane Doe","email":"jane@x.com","phoneModel":"iphone-15","issueDescription":"x","urgency":"high","formId":"form-123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleSubmit(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, st.inserted)
}
