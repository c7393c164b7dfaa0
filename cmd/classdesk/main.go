package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/classdesk/classdesk/internal/handler"
	appI18n "github.com/classdesk/classdesk/internal/i18n"
	"github.com/classdesk/classdesk/internal/media"
	"github.com/classdesk/classdesk/internal/model"
	"github.com/classdesk/classdesk/internal/qbank"
	"github.com/classdesk/classdesk/internal/review"
	"github.com/classdesk/classdesk/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "classdesk",
		Short: "Admin dashboard server for the ClassDesk LMS",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd(), exportResultsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `classdesk --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP admin server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "classdesk.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default language for messages (en, es)")
	f.String("media-url", "", "Media host upload endpoint (empty disables uploads)")
	f.String("media-key", "", "Media host API key (or set CLASSDESK_MEDIA_KEY)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-email", "admin@classdesk.local", "Initial admin email")
	f.String("admin-password", "", "Initial admin password (or set CLASSDESK_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a question bank JSON file into an exam",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "classdesk.db", "SQLite database path")
	f.String("exam-id", "", "Target exam id (required)")
	f.StringP("file", "f", "", "Question bank JSON file (required)")
	f.String("mode", "append", "Import mode (append, replace)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an exam as shareable JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "classdesk.db", "SQLite database path")
	f.String("exam-id", "", "Exam id to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func exportResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-results",
		Short: "Export exam results as CSV",
		RunE:  runExportResults,
	}
	f := cmd.Flags()
	f.String("db", "classdesk.db", "SQLite database path")
	f.String("exam-id", "", "Limit to one exam")
	f.String("class", "", "Limit to one class")
	f.String("division", "", "Limit to one division")
	f.Bool("include-hidden", false, "Include hidden results")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CLASSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("classdesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/classdesk")
	v.AddConfigPath("/etc/classdesk")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := model.Config{
		Addr:          v.GetString("addr"),
		Lang:          lang,
		MediaURL:      v.GetString("media-url"),
		MediaKey:      v.GetString("media-key"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	mediaClient := media.New(cfg.MediaURL, cfg.MediaKey)
	if !mediaClient.Enabled() {
		slog.Warn("media host not configured, uploads disabled")
	}

	h, err := handler.New(db, mediaClient, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}
	defer h.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"lang", lang,
		"media_enabled", mediaClient.Enabled(),
		"secure_cookies", cfg.SecureCookies,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	path := v.GetString("file")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := qbank.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	examID := v.GetString("exam-id")
	doc, err := db.Get(model.CollectionExams, examID)
	if err != nil {
		return fmt.Errorf("get exam %s: %w", examID, err)
	}
	exam, err := store.Decode[model.Exam](doc)
	if err != nil {
		return fmt.Errorf("decode exam %s: %w", examID, err)
	}

	switch mode := v.GetString("mode"); mode {
	case "replace":
		exam.Questions = res.Questions
		res.Meta.MergeInto(&exam)
	case "append":
		exam.Questions = append(exam.Questions, res.Questions...)
	default:
		return fmt.Errorf("unknown mode %q (want append or replace)", mode)
	}
	exam.Recount()

	data, err := store.Encode(exam)
	if err != nil {
		return fmt.Errorf("encode exam: %w", err)
	}
	if err := db.Update(model.CollectionExams, examID, data); err != nil {
		return fmt.Errorf("save exam: %w", err)
	}

	slog.Info("imported questions", "path", path, "exam", examID, "count", len(res.Questions))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	examID := v.GetString("exam-id")
	doc, err := db.Get(model.CollectionExams, examID)
	if err != nil {
		return fmt.Errorf("get exam %s: %w", examID, err)
	}
	exam, err := store.Decode[model.Exam](doc)
	if err != nil {
		return fmt.Errorf("decode exam %s: %w", examID, err)
	}

	data, err := qbank.Export(exam)
	if err != nil {
		return fmt.Errorf("export exam: %w", err)
	}

	w, closeFn, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func runExportResults(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := listAll[model.Result](db, model.CollectionResults)
	if err != nil {
		return err
	}
	exams, err := listAll[model.Exam](db, model.CollectionExams)
	if err != nil {
		return err
	}
	users, err := listAll[model.UserProfile](db, model.CollectionUsers)
	if err != nil {
		return err
	}

	rows := review.FilterRows(review.BuildRows(results, exams, users), review.Filter{
		ExamID:        v.GetString("exam-id"),
		Class:         v.GetString("class"),
		Division:      v.GetString("division"),
		IncludeHidden: v.GetBool("include-hidden"),
	})

	w, closeFn, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeFn()

	if err := review.WriteCSV(w, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	slog.Info("exported results", "count", len(rows))
	return nil
}

func listAll[T any](db *store.Store, collection string) ([]T, error) {
	docs, err := db.List(collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	items, err := store.DecodeAll[T](docs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return items, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func seedAdmin(db *store.Store, email, password string) error {
	count, err := db.Count(model.CollectionUsers)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or CLASSDESK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := model.UserProfile{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	}
	data, err := store.Encode(admin)
	if err != nil {
		return fmt.Errorf("encode admin user: %w", err)
	}
	if _, err := db.Create(model.CollectionUsers, data); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "email", email)
	return nil
}
