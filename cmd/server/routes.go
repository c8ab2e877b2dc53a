package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"repair-intake/internal/catalog"
	"repair-intake/internal/config"
	"repair-intake/internal/intake"
	"repair-intake/internal/middleware"
	"repair-intake/internal/notify"
	"repair-intake/internal/repair"
	"repair-intake/internal/storage"
	"repair-intake/internal/upload"
)

// app 汇集了 HTTP 层需要的全部依赖
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	objects  storage.ObjectStore
	records  repair.Store
	guard    intake.Guard
	recorder middleware.Recorder
	limiter  *middleware.RateLimiter
}

// notifiers builds the in-process confirmation service and the notifier the
// submit pipeline calls, according to notify.mode.
func (a *app) notifiers() (*notify.Service, notify.Notifier) {
	nc := a.cfg.Notify
	mailer := notify.NewResendMailer(nc.ProviderURL, nc.APIKey, nc.From, nc.ReplyTo, nc.Timeout)
	svc := notify.NewService(mailer, nc.SupportPhone, nc.DedupWindow, a.logger)

	switch nc.Mode {
	case "http":
		return svc, notify.NewFunctionClient(nc.FunctionURL, nc.APIKey, nc.Timeout)
	case "off":
		return svc, notify.Nop{}
	default:
		return svc, &notify.LocalNotifier{Service: svc}
	}
}

func (a *app) handler() http.Handler {
	notifySvc, notifier := a.notifiers()

	uploader := upload.NewClient(a.objects, a.logger)
	uploader.MaxBytes = a.cfg.Upload.MaxBytes
	uploader.Timeout = a.cfg.Upload.Timeout

	intakeSvc := intake.NewService(uploader, a.records, notifier, a.logger)
	intakeSvc.Timeouts = intake.Timeouts{
		Upload:  a.cfg.Upload.Timeout,
		Persist: a.cfg.Database.Timeout,
		Notify:  a.cfg.Notify.Timeout,
	}

	intakeHandlers := intake.NewHandlers(intakeSvc, a.guard, a.cfg.Upload.MaxBytes, a.logger)
	catalogHandlers := &catalog.Handlers{Logger: a.logger}
	adminHandlers := repair.NewHandlers(a.records, a.cfg.AdminToken, a.logger)
	notifyHandler := notify.NewHandler(notifySvc, a.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/phone-models", catalogHandlers.HandlePhoneModels)
	mux.HandleFunc("GET /api/urgency-levels", catalogHandlers.HandleUrgencyLevels)

	// 提交入口受限流保护
	submit := http.Handler(http.HandlerFunc(intakeHandlers.HandleSubmit))
	if a.limiter != nil {
		submit = a.limiter.Middleware(submit)
	}
	mux.Handle("POST /api/repair-requests", submit)

	mux.Handle("/send-confirmation-email", notifyHandler)

	// 管理 API (受 AuthMiddleware 保护)
	mux.HandleFunc("GET /api/admin/repair-requests", adminHandlers.AuthMiddleware(adminHandlers.HandleList))
	mux.HandleFunc("GET /api/admin/repair-requests/{id}", adminHandlers.AuthMiddleware(adminHandlers.HandleGet))

	// 本地文件存储时直接提供媒体文件
	if fs, ok := a.objects.(*storage.FileStore); ok {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(fs.Root()))))
	}

	return middleware.AccessLog(a.logger, a.recorder)(middleware.CORS(mux))
}

func (a *app) server() *http.Server {
	return &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Upload.Timeout + 10*time.Second,
		WriteTimeout:      a.cfg.Upload.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
