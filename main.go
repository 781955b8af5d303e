package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nowcasting-dashboard/internal/auth"
	dashboardapp "nowcasting-dashboard/internal/dashboard/application"
	"nowcasting-dashboard/internal/logging"
	statusapp "nowcasting-dashboard/internal/status/application"
	status "nowcasting-dashboard/internal/status/domain"
	statuspostgres "nowcasting-dashboard/internal/status/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nowcasting-dashboard",
		Short: "Solar forecast monitoring dashboard",
		Long: `nowcasting-dashboard serves the forecast summary, PV and data
freshness views as a JSON API with live refresh events.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(logConfig())
		},
	}

	rootCmd.AddCommand(newServeCmd(), newStatusCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logConfig() logging.Config {
	return logging.Config{
		Level:      getenvDefault("LOG_LEVEL", "info"),
		Debug:      getenvBool("LOG_DEBUG", false),
		Output:     getenvDefault("LOG_OUTPUT", "stdout"),
		TimeFormat: getenvDefault("LOG_TIME_FORMAT", ""),
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

var errStatusUnhealthy = errors.New("one or more sources are in error")

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print data freshness once and exit non-zero on errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := getenvDefault("DB_URL", getenvDefault("PG_DSN", ""))
			if dsn == "" {
				return errors.New("DB_URL is required")
			}
			thresholds, err := statusapp.LoadConfig()
			if err != nil {
				return err
			}

			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer db.Close()

			reader := statuspostgres.NewLastUpdatedReader(db)
			service, err := statusapp.NewService(reader, reader, thresholds, dashboardapp.SystemClock(), logging.WithComponent("status"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), getenvDuration("FETCH_TIMEOUT", 30*time.Second))
			defer cancel()
			report, err := service.Report(ctx)
			if err != nil {
				return err
			}

			printStatus(cmd, report)
			if status.Worst(report.Rows()) == status.StatusError {
				return errStatusUnhealthy
			}
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, report statusapp.Report) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, section := range []struct {
		title string
		rows  []status.StatusRow
	}{
		{"Consumer", report.Consumers},
		{"Forecast", report.Forecasts},
	} {
		fmt.Fprintf(tw, "%s\tLast pulled [UTC]\tStatus\tWarning\tError\n", section.title)
		for _, row := range section.rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.SourceName, row.LastUpdated, row.Status, row.WarningThreshold, row.ErrorThreshold)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a dashboard access token signed with AUTH_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := getenvDefault("AUTH_JWT_SECRET", "")
			if secret == "" {
				return errors.New("AUTH_JWT_SECRET is required")
			}
			normalized, ok := auth.NormalizeRole(role)
			if !ok {
				return fmt.Errorf("invalid role %q", role)
			}
			token, err := auth.IssueJWT(subject, normalized, ttl, []byte(secret))
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "dashboard", "Token subject")
	cmd.Flags().StringVarP(&role, "role", "r", string(auth.RoleViewer), "Role: viewer or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

type config struct {
	HTTPAddr        string
	DatabaseURL     string
	PVDatabaseURL   string
	APIURL          string
	JWTSecret       string
	BasicUsername   string
	BasicPassword   string
	StatusInterval  time.Duration
	SummaryInterval time.Duration
	PVInterval      time.Duration
	FrameInterval   time.Duration
	FetchTimeout    time.Duration
	DetailCacheTTL  time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8050"),
		DatabaseURL:     getenvDefault("DB_URL", getenvDefault("PG_DSN", "")),
		PVDatabaseURL:   getenvDefault("DB_URL_PV", ""),
		APIURL:          getenvDefault("API_URL", ""),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", ""),
		BasicUsername:   getenvDefault("DASHBOARD_USERNAME", ""),
		BasicPassword:   getenvDefault("DASHBOARD_PASSWORD", ""),
		StatusInterval:  getenvDuration("STATUS_REFRESH_INTERVAL", 30*time.Second),
		SummaryInterval: getenvDuration("SUMMARY_REFRESH_INTERVAL", 5*time.Minute),
		PVInterval:      getenvDuration("PV_REFRESH_INTERVAL", 15*time.Minute),
		FrameInterval:   time.Duration(getenvIntDefault("MAP_REFRESH_SECONDS", 3)) * time.Second,
		FetchTimeout:    getenvDuration("FETCH_TIMEOUT", 30*time.Second),
		DetailCacheTTL:  getenvDuration("DETAIL_CACHE_TTL", time.Minute),
	}
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DB_URL is required")
	}
	if cfg.APIURL == "" {
		return cfg, errors.New("API_URL is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
