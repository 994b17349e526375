package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/elearn/internal/exam"
	"github.com/pavelanni/elearn/internal/handler"
	appI18n "github.com/pavelanni/elearn/internal/i18n"
	"github.com/pavelanni/elearn/internal/loader"
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/notify"
	"github.com/pavelanni/elearn/internal/recorder"
	"github.com/pavelanni/elearn/internal/store"
	"github.com/pavelanni/elearn/internal/table/xlsx"
	"github.com/pavelanni/elearn/internal/targeting"
)

//go:generate templ generate -path ../..

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "elearn",
		Short: "Spreadsheet-driven e-learning exam with result notifications",
	}

	serve := serveCmd()
	root.AddCommand(serve, targetsCmd(), exportCmd(), importCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `elearn --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func commonFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.StringP("lang", "l", "ja", "Language for pages and mail (ja, en)")
}

func tableFlags(f *pflag.FlagSet) {
	f.String("backend", "sheets", "Table backend (sheets, xlsx, sqlite, memory)")
	f.String("spreadsheet-id", "", "Google spreadsheet ID or URL (sheets backend)")
	f.String("credentials", "credentials.json", "Service account credentials file (sheets backend, gmail mailer)")
	f.String("workbook", "elearn.xlsx", "Workbook path (xlsx backend)")
	f.String("db", "elearn.db", "SQLite database path (sqlite backend)")
	f.String("redis-addr", "", "Redis address for caching sheet reads (empty disables)")
	f.Duration("cache-ttl", time.Minute, "How long cached sheet reads stay valid")
	f.String("sheet-users", model.DefaultSheetNames.Users, "User directory sheet")
	f.String("sheet-questions", model.DefaultSheetNames.Questions, "Question bank sheet")
	f.String("sheet-matrix", model.DefaultSheetNames.Matrix, "Notification matrix sheet")
	f.String("sheet-results", model.DefaultSheetNames.Results, "Results sheet")
	f.StringSlice("wildcard-alias", []string{"全部署"}, "Department values meaning every department (repeatable)")
	f.Bool("demo", false, "Use built-in sample data in memory")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	tableFlags(f)
	f.String("mailer", "log", "Mail transport (gmail, sendgrid, log)")
	f.String("sender-email", "", "From address of result mail")
	f.String("sender-name", "E-Learning", "From display name of result mail")
	f.String("sendgrid-key", "", "SendGrid API key (or set ELEARN_SENDGRID_KEY)")
	f.String("subject-prefix", "[E-Learning] ", "Prefix of the mail subject")
	f.String("exam-title", "", "Exam title shown on pages and in mail")
	f.Int("notify-concurrency", 4, "Parallel administrative mail sends")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /ja)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.Duration("session-idle", 2*time.Hour, "Drop browser sessions idle for this long")
	commonFlags(f)
	return cmd
}

func targetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Print who a submission by the named user would notify",
		RunE:  runTargets,
	}
	f := cmd.Flags()
	f.String("name", "", "Test-taker name as written in the user directory (required)")
	tableFlags(f)
	commonFlags(f)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	tableFlags(f)
	commonFlags(f)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the exam sheets of a workbook into the SQLite database",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("workbook", "", "Workbook to import (required)")
	f.String("db", "elearn.db", "SQLite database path")
	f.String("sheet-users", model.DefaultSheetNames.Users, "User directory sheet")
	f.String("sheet-questions", model.DefaultSheetNames.Questions, "Question bank sheet")
	f.String("sheet-matrix", model.DefaultSheetNames.Matrix, "Notification matrix sheet")
	f.String("sheet-results", model.DefaultSheetNames.Results, "Results sheet")
	commonFlags(f)
	_ = cmd.MarkFlagRequired("workbook")
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

	v.SetEnvPrefix("ELEARN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("elearn")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/elearn")
	v.AddConfigPath("/etc/elearn")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func sheetNames(v *viper.Viper) model.SheetNames {
	return model.SheetNames{
		Users:     v.GetString("sheet-users"),
		Questions: v.GetString("sheet-questions"),
		Matrix:    v.GetString("sheet-matrix"),
		Results:   v.GetString("sheet-results"),
	}
}

func newLoader(v *viper.Viper, tables *tableSet) *loader.Loader {
	parser := loader.NewParser(v.GetStringSlice("wildcard-alias"), model.DefaultResultLabels)
	return loader.New(tables.store, tables.sheets, parser)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	idle := v.GetDuration("session-idle")
	if idle <= 0 {
		return fmt.Errorf("--session-idle must be positive, got %s", idle)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	tables, err := openTables(ctx, v)
	if err != nil {
		return err
	}
	defer tables.Close()

	transport, err := newTransport(ctx, v)
	if err != nil {
		return err
	}

	l := newLoader(v, tables)
	svc := exam.NewService(l,
		recorder.New(tables.store, tables.sheets.Results, model.DefaultResultLabels),
		notify.New(transport, notify.Config{
			SubjectPrefix: v.GetString("subject-prefix"),
			ExamTitle:     v.GetString("exam-title"),
			Concurrency:   v.GetInt("notify-concurrency"),
		}),
	)

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	examCfg := model.ExamConfig{
		Title:         v.GetString("exam-title"),
		Lang:          lang,
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	}
	h := handler.New(l, svc, examCfg)
	go h.RunSweeper(ctx, idle/4, idle)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"backend", tables.backend,
		"mailer", v.GetString("mailer"),
		"lang", lang,
		"base_path", basePath,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runTargets(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	tables, err := openTables(ctx, v)
	if err != nil {
		return err
	}
	defer tables.Close()

	l := newLoader(v, tables)
	name := v.GetString("name")
	user, ok, err := l.User(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no user named %q in %s", name, tables.sheets.Users)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s> %s\n", user.Name, user.Email, user.DepartmentDisplay)
	if targeting.IsManagement(user.Role) {
		fmt.Fprintf(out, "role %q: management tier, no administrative notifications\n", user.Role)
		return nil
	}
	targets, err := exam.NewService(l, nil, nil).Targets(ctx, user)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "no administrative notifications")
	}
	for _, t := range targets {
		fmt.Fprintln(out, t)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	tables, err := openTables(ctx, v)
	if err != nil {
		return err
	}
	defer tables.Close()

	results, err := newLoader(v, tables).Results(ctx)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	export := model.NewResultsExport(tables.sheets.Results, results, time.Now())

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	n, err := importWorkbook(ctx, db, v.GetString("workbook"), sheetNames(v))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d sheets\n", n)
	return nil
}

// importWorkbook copies the exam sheets of a workbook into db, once per
// file content. The directory, question and matrix sheets are replaced;
// the results sheet is only created when db does not have one yet.
func importWorkbook(ctx context.Context, db *store.Store, path string, names model.SheetNames) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	hash := sha256sum(data)
	storedHash, err := db.ImportedFileHash(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("workbook unchanged, skipping", "path", path)
		return 0, nil
	}

	wb, err := xlsx.Open(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	existing, err := db.SheetNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sheets: %w", err)
	}

	count := 0
	for _, name := range []string{names.Users, names.Questions, names.Matrix, names.Results} {
		if name == names.Results && slices.Contains(existing, name) {
			slog.Info("keeping recorded results", "sheet", name)
			continue
		}
		rows, err := wb.Rows(ctx, name)
		if err != nil {
			if name == names.Results {
				rows = [][]string{resultsHeader}
			} else {
				return count, fmt.Errorf("import %s: %w", path, err)
			}
		}
		if err := db.ReplaceSheet(ctx, name, rows); err != nil {
			return count, fmt.Errorf("import %s: %w", path, err)
		}
		slog.Info("imported sheet", "sheet", name, "rows", len(rows))
		count++
	}

	if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
		return count, fmt.Errorf("record import for %s: %w", path, err)
	}
	return count, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
