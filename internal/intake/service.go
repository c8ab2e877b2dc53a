package intake

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"repair-intake/internal/catalog"
	"repair-intake/internal/form"
	"repair-intake/internal/media"
	"repair-intake/internal/notify"
	"repair-intake/internal/repair"
	"repair-intake/internal/upload"
)

const instrumentationName = "repair-intake/internal/intake"

// Service runs the submit pipeline: validate, upload, persist, notify.
type Service struct {
	Uploader Uploader
	Store    repair.Store
	Notifier notify.Notifier
	Logger   *zap.Logger
	Timeouts Timeouts

	tracer      trace.Tracer
	submissions metric.Int64Counter
}

func NewService(uploader Uploader, store repair.Store, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		Uploader: uploader,
		Store:    store,
		Notifier: notifier,
		Logger:   logger.Named("intake"),
		Timeouts: DefaultTimeouts(),
		tracer:   otel.Tracer(instrumentationName),
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter("repair_intake.submissions",
		metric.WithDescription("Repair request submissions by outcome"))
	if err != nil {
		s.Logger.Warn("create submissions counter failed", zap.Error(err))
	}
	s.submissions = counter
	return s
}

// NewSession starts a fresh form instance bound to this service.
func (s *Service) NewSession() *Session {
	return &Session{svc: s, data: form.New()}
}

// Submit runs one submission without a long-lived session.
func (s *Service) Submit(ctx context.Context, sub Submission) Result {
	return s.process(ctx, sub)
}

func (s *Service) process(ctx context.Context, sub Submission) (res Result) {
	ctx, span := s.tracer.Start(ctx, "intake.Submit")
	defer func() {
		span.SetAttributes(attribute.String("intake.outcome", string(res.Outcome)))
		if res.Outcome == OutcomeFailure {
			span.SetStatus(codes.Error, res.Message)
		}
		if s.submissions != nil {
			s.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(res.Outcome))))
		}
		span.End()
	}()

	data := sub.Form.Normalize()
	if errs := form.Validate(data, sub.hasVoice()); !errs.Empty() {
		s.Logger.Debug("submission rejected by validation", zap.Strings("fields", fieldNames(errs)))
		return Result{Outcome: OutcomeInvalid, Errors: errs}
	}

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("submission panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failure(msgGeneric, fmt.Errorf("panic: %v", r))
		}
	}()

	var voiceURL, photoURL *string

	if sub.hasVoice() {
		url, err := s.upload(ctx, *sub.Voice, upload.FolderVoice, "webm")
		if err != nil {
			s.Logger.Warn("voice upload failed", zap.Error(err))
			return failure(msgVoiceFailed+err.Error(), err)
		}
		voiceURL = &url
	}

	if sub.Photo != nil && sub.Photo.Size() > 0 {
		url, err := s.upload(ctx, sub.Photo.Blob, upload.FolderPhotos, photoExt(sub.Photo.Name))
		if err != nil {
			s.Logger.Warn("photo upload failed", zap.Error(err))
			return failure(msgPhotoFailed+err.Error(), err)
		}
		photoURL = &url
	}

	record := &repair.RepairRequest{
		FullName:          strings.TrimSpace(data.FullName),
		Email:             strings.TrimSpace(data.Email),
		PhoneModel:        data.PhoneModel,
		IssueDescription:  repair.StringPtr(strings.TrimSpace(data.IssueDescription)),
		VoiceRecordingURL: voiceURL,
		PhotoURL:          photoURL,
		Urgency:           data.Urgency,
		Status:            repair.StatusPending,
	}

	saved, err := s.persist(ctx, record)
	if err != nil {
		s.Logger.Error("persist repair request failed", zap.Error(err))
		return failure(msgPersistFailed, err)
	}

	summary := summarize(saved)
	s.notify(ctx, saved, summary)

	s.Logger.Info("repair request submitted",
		zap.String("id", saved.ID),
		zap.String("urgency", saved.Urgency),
		zap.Bool("voice", voiceURL != nil),
		zap.Bool("photo", photoURL != nil))
	return Result{Outcome: OutcomeSuccess, Record: saved, Summary: summary}
}

func (s *Service) upload(ctx context.Context, b media.Blob, folder, ext string) (string, error) {
	if s.Uploader == nil {
		return "", &upload.Error{Kind: upload.KindConfiguration, Message: "Storage not configured. Please contact support."}
	}
	ctx, cancel := withTimeout(ctx, s.Timeouts.Upload)
	defer cancel()
	return s.Uploader.Upload(ctx, b, folder, ext)
}

func (s *Service) persist(ctx context.Context, r *repair.RepairRequest) (*repair.RepairRequest, error) {
	ctx, cancel := withTimeout(ctx, s.Timeouts.Persist)
	defer cancel()
	return s.Store.Insert(ctx, r)
}

// notify never fails the submission.
func (s *Service) notify(ctx context.Context, r *repair.RepairRequest, sum *Summary) {
	ctx, cancel := withTimeout(ctx, s.Timeouts.Notify)
	defer cancel()

	err := s.Notifier.Notify(ctx, notify.Request{
		Email:      r.Email,
		Name:       r.FullName,
		RequestID:  r.ID,
		PhoneModel: sum.PhoneModel,
		Urgency:    r.Urgency,
		Turnaround: sum.Turnaround,
	})
	if err != nil {
		s.Logger.Warn("confirmation email failed", zap.String("id", r.ID), zap.Error(err))
	}
}

func summarize(r *repair.RepairRequest) *Summary {
	sum := &Summary{RequestID: r.ID, PhoneModel: catalog.PhoneModelLabel(r.PhoneModel)}
	if lvl, ok := catalog.LookupUrgency(r.Urgency); ok {
		sum.UrgencyLabel = lvl.Label
		sum.Turnaround = lvl.Turnaround
	}
	return sum
}

func failure(msg string, err error) Result {
	return Result{Outcome: OutcomeFailure, Message: msg, Err: err}
}

// photoExt derives the extension from the original filename, default jpg.
func photoExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "jpg"
	}
	return ext
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func fieldNames(errs form.Errors) []string {
	out := make([]string, 0, len(errs))
	for k := range errs {
		out = append(out, k)
	}
	return out
}
