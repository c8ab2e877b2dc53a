package notify

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultSupportPhone = "+234 805 268 9119"

// Service renders and sends confirmation emails.
type Service struct {
	Mailer       Mailer
	SupportPhone string
	Logger       *zap.Logger

	sent *cache.Cache
	now  func() time.Time
}

// NewService creates the service. Successful sends are remembered per
// request id for dedupWindow; zero disables deduplication.
func NewService(mailer Mailer, supportPhone string, dedupWindow time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if supportPhone == "" {
		supportPhone = DefaultSupportPhone
	}
	s := &Service{
		Mailer:       mailer,
		SupportPhone: supportPhone,
		Logger:       logger.Named("notify"),
		now:          time.Now,
	}
	if dedupWindow > 0 {
		s.sent = cache.New(dedupWindow, 2*dedupWindow)
	}
	return s
}

// Send validates req and delivers the confirmation. Errors are
// *MissingFieldsError, *ProviderError, ErrMissingAPIKey or transport failures.
func (s *Service) Send(ctx context.Context, req Request) (*Response, error) {
	if missing := req.Missing(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	if s.sent != nil {
		if cached, ok := s.sent.Get(dedupKey(req)); ok {
			s.Logger.Info("confirmation already sent", zap.String("request_id", req.RequestID))
			resp := *cached.(*Response)
			return &resp, nil
		}
	}

	detail := DetailFor(req.Urgency)
	turnaround := req.Turnaround
	if turnaround == "" {
		turnaround = detail.Turnaround
	}

	subject := Subject(req.PhoneModel, req.RequestID)
	html, err := renderEmail(emailData{
		Name:         req.Name,
		RequestID:    req.RequestID,
		PhoneModel:   req.PhoneModel,
		Detail:       detail,
		Turnaround:   turnaround,
		SupportPhone: s.SupportPhone,
		WhatsAppURL:  whatsAppURL(s.SupportPhone),
		Year:         s.now().Year(),
	})
	if err != nil {
		return nil, err
	}

	id, err := s.Mailer.Send(ctx, Message{To: req.Email, Subject: subject, HTML: html})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("confirmation email sent",
		zap.String("request_id", req.RequestID),
		zap.String("email_id", id))

	resp := &Response{
		Success:   true,
		Message:   "Confirmation email sent successfully",
		RequestID: req.RequestID,
		Recipient: req.Email,
		Subject:   subject,
		Method:    "Resend",
		EmailID:   id,
		Timestamp: s.now().UTC(),
	}
	if s.sent != nil {
		s.sent.Set(dedupKey(req), resp, cache.DefaultExpiration)
	}
	return resp, nil
}

// dedupKey 同一请求换了收件人时需要重新发送
func dedupKey(req Request) string {
	return req.RequestID + "|" + strings.ToLower(strings.TrimSpace(req.Email))
}
