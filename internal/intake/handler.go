package intake

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"repair-intake/internal/form"
	"repair-intake/internal/media"
	"repair-intake/internal/upload"
)

const (
	fieldFormID = "formId"
	partVoice   = "voiceRecording"
	partPhoto   = "photo"

	multipartMemory = 32 << 20
)

// Handlers serves POST /api/repair-requests.
type Handlers struct {
	Service *Service
	Guard   Guard
	Logger  *zap.Logger
	// MaxBytes bounds a single attached file; the request body may carry two.
	MaxBytes int64
}

func NewHandlers(svc *Service, guard Guard, maxBytes int64, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{Service: svc, Guard: guard, MaxBytes: maxBytes, Logger: logger.Named("intake.http")}
}

type submitRequest struct {
	form.Data
	FormID string `json:"formId"`
}

func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.MaxBytes+(1<<20))
	}

	var (
		req   submitRequest
		sub   Submission
		errs  form.Errors
		err   error
		photo *media.PhotoPicker
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		previews := media.NewPreviews()
		defer previews.Close()
		photo = media.NewPhotoPicker(previews)
		defer photo.Close()
		req, sub, errs, err = h.readMultipart(r, photo)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
		sub.Form = req.Data
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large. Maximum size is 10MB."})
			return
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	if req.FormID != "" && h.Guard != nil {
		release, err := h.Guard.Acquire(r.Context(), req.FormID)
		if errors.Is(err, ErrInFlight) {
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "A submission for this form is already in progress"})
			return
		}
		if err != nil {
			// the guard is best effort; fall through without it
			h.Logger.Warn("in-flight guard unavailable", zap.Error(err))
		} else {
			defer release()
		}
	}

	res := h.Service.Submit(r.Context(), sub)
	switch res.Outcome {
	case OutcomeSuccess:
		h.writeJSON(w, http.StatusCreated, map[string]any{"record": res.Record, "summary": res.Summary})
	case OutcomeInvalid:
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": res.Errors})
	default:
		status := http.StatusInternalServerError
		var ue *upload.Error
		if errors.As(res.Err, &ue) {
			status = http.StatusBadGateway
		}
		h.writeJSON(w, status, map[string]string{"error": res.Message})
	}
}

func (h *Handlers) readMultipart(r *http.Request, picker *media.PhotoPicker) (submitRequest, Submission, form.Errors, error) {
	var req submitRequest
	var sub Submission
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return req, sub, nil, err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req.FullName = r.FormValue(form.FieldFullName)
	req.Email = r.FormValue(form.FieldEmail)
	req.PhoneModel = r.FormValue(form.FieldPhoneModel)
	req.IssueDescription = r.FormValue(form.FieldIssueDescription)
	req.Urgency = r.FormValue("urgency")
	req.FormID = r.FormValue(fieldFormID)
	sub.Form = req.Data

	if fh := firstFile(r, partVoice); fh != nil {
		data, err := readPart(fh)
		if err != nil {
			return req, sub, nil, err
		}
		sub.Voice = &media.Blob{Data: data, ContentType: fh.Header.Get("Content-Type")}
	}

	if fh := firstFile(r, partPhoto); fh != nil {
		data, err := readPart(fh)
		if err != nil {
			return req, sub, nil, err
		}
		ct := fh.Header.Get("Content-Type")
		if ct == "application/octet-stream" {
			ct = ""
		}
		f, err := picker.Select(fh.Filename, ct, data)
		if errors.Is(err, media.ErrNotImage) {
			return req, sub, form.Errors{partPhoto: "Please select an image file"}, nil
		}
		if err != nil {
			return req, sub, nil, err
		}
		sub.Photo = &f
	}
	return req, sub, nil, nil
}

func firstFile(r *http.Request, name string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[name]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Warn("encode response failed", zap.Error(err))
	}
}
