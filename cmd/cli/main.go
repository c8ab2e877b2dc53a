package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repair-intake/internal/catalog"
	"repair-intake/internal/config"
	"repair-intake/internal/form"
	"repair-intake/internal/intake"
	"repair-intake/internal/logging"
	"repair-intake/internal/media"
	"repair-intake/internal/notify"
	"repair-intake/internal/repair"
	"repair-intake/internal/storage"
	"repair-intake/internal/upload"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger

	submitData form.Data
	voicePath  string
	photoPath  string
	listLimit  int
)

var rootCmd = &cobra.Command{
	Use:           "repairctl",
	Short:         "Command line client for the repair intake service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, "console")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a repair request",
	Example: `  repairctl submit --name "Jane Doe" --email jane@example.com --phone iphone-15 \
    --description "screen cracked" --urgency high --photo ./crack.jpg`,
	RunE: runSubmit,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print phone models and urgency levels",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PHONE MODEL\tLABEL")
		for _, m := range catalog.PhoneModels() {
			fmt.Fprintf(w, "%s\t%s\n", m.Value, m.Label)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "URGENCY\tLABEL\tTURNAROUND")
		for _, u := range catalog.UrgencyLevels() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.Value, u.Label, u.Turnaround)
		}
		return w.Flush()
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect stored repair requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest repair requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		list, err := store.List(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tNAME\tPHONE\tURGENCY\tSTATUS")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"),
				r.FullName, catalog.PhoneModelLabel(r.PhoneModel), r.Urgency, r.Status)
		}
		return w.Flush()
	},
}

var requestsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one repair request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		r, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, repair.ErrNotFound) {
			return fmt.Errorf("repair request %s not found", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, r)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, closeDB, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		closeDB()
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "repair-intake.yaml", "配置文件路径")

	f := submitCmd.Flags()
	f.StringVar(&submitData.FullName, "name", "", "full name")
	f.StringVar(&submitData.Email, "email", "", "contact email")
	f.StringVar(&submitData.PhoneModel, "phone", "", "phone model value (see `repairctl catalog`)")
	f.StringVar(&submitData.IssueDescription, "description", "", "issue description")
	f.StringVar(&submitData.Urgency, "urgency", catalog.DefaultUrgency, "low, medium or high")
	f.StringVar(&voicePath, "voice", "", "voice memo file, or - for stdin")
	f.StringVar(&photoPath, "photo", "", "photo of the device")

	requestsListCmd.Flags().IntVar(&listLimit, "limit", repair.DefaultListLimit, "maximum number of requests")
	requestsCmd.AddCommand(requestsListCmd, requestsGetCmd)

	rootCmd.AddCommand(submitCmd, catalogCmd, requestsCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (repair.Store, func(), error) {
	store, db, err := repair.Open(ctx, cfg.Database, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("无法初始化数据库: %w", err)
	}
	return store, func() {
		if err := db.Close(); err != nil {
			logger.Warn("关闭数据库连接时出错", zap.Error(err))
		}
	}, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	uploader := upload.NewClient(objects, logger)
	uploader.MaxBytes = cfg.Upload.MaxBytes
	uploader.Timeout = cfg.Upload.Timeout

	svc := intake.NewService(uploader, store, newNotifier(), logger)
	sess := svc.NewSession()
	defer sess.Close()
	sess.SetForm(submitData)

	previews := media.NewPreviews()
	defer previews.Close()

	if voicePath != "" {
		rec, err := recordFrom(ctx, voicePath, previews)
		if err != nil {
			return err
		}
		sess.Recorder = rec
	}
	if photoPath != "" {
		data, err := os.ReadFile(photoPath)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		picker := media.NewPhotoPicker(previews)
		if _, err := picker.Select(filepath.Base(photoPath), "", data); err != nil {
			return err
		}
		sess.Picker = picker
	}

	res, err := sess.Submit(ctx)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case intake.OutcomeInvalid:
		return res.Errors
	case intake.OutcomeFailure:
		logger.Debug("submission failed", zap.Error(res.Err))
		return errors.New(res.Message)
	}
	return printJSON(cmd, map[string]any{"record": res.Record, "summary": res.Summary})
}

// recordFrom captures a voice memo from a file or stdin until EOF.
func recordFrom(ctx context.Context, path string, previews *media.Previews) (*media.Recorder, error) {
	dev := &media.ReaderDevice{R: os.Stdin}
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open voice memo: %w", err)
		}
		defer f.Close()
		dev.R = f
	}

	rec := media.NewRecorder(dev, previews)
	rec.MaxBytes = cfg.Upload.MaxBytes
	if err := rec.Start(ctx); err != nil {
		return nil, err
	}
	select {
	case <-rec.Done():
	case <-ctx.Done():
	}
	blob, err := rec.Stop()
	if err != nil {
		return nil, err
	}
	if rec.OverLimit() {
		// the upload client rejects the clip with SizeExceeded
		logger.Warn("voice memo exceeds the upload limit", zap.Int64("max_bytes", rec.MaxBytes))
	}
	logger.Info("voice memo captured", zap.Int64("bytes", blob.Size()), zap.String("elapsed", media.FormatElapsed(rec.Elapsed())))
	return rec, nil
}

func newNotifier() notify.Notifier {
	nc := cfg.Notify
	switch nc.Mode {
	case "http":
		return notify.NewFunctionClient(nc.FunctionURL, nc.APIKey, nc.Timeout)
	case "off":
		return notify.Nop{}
	default:
		mailer := notify.NewResendMailer(nc.ProviderURL, nc.APIKey, nc.From, nc.ReplyTo, nc.Timeout)
		return &notify.LocalNotifier{Service: notify.NewService(mailer, nc.SupportPhone, 0, logger)}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
