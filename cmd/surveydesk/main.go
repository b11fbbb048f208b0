package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/surveydesk/surveydesk/internal/auth/session"
	"github.com/surveydesk/surveydesk/internal/auth/token"
	"github.com/surveydesk/surveydesk/internal/common/config"
	"github.com/surveydesk/surveydesk/internal/gateway"
	"github.com/surveydesk/surveydesk/internal/notify"
	"github.com/surveydesk/surveydesk/internal/realtime"
	"github.com/surveydesk/surveydesk/pkg/logger"
	"github.com/surveydesk/surveydesk/pkg/metrics"
	"github.com/surveydesk/surveydesk/pkg/version"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	configPath  string
	username    string
	password    string
	metricsAddr string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of surveydesk",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("surveydesk version %s\n", version.Get())
	},
}

var rootCmd = &cobra.Command{
	Use:   "surveydesk",
	Short: "Survey Testing Dashboard Client",
	Long:  `Surveydesk logs into the survey testing backend, follows the realtime notification channel and prints notifications as they arrive`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "login username (or SURVEYDESK_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "login password (or SURVEYDESK_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, empty disables")
}

func credentials() session.Credentials {
	creds := session.Credentials{Username: username, Password: password}
	if creds.Username == "" {
		creds.Username = os.Getenv("SURVEYDESK_USERNAME")
	}
	if creds.Password == "" {
		creds.Password = os.Getenv("SURVEYDESK_PASSWORD")
	}
	return creds
}

func run() {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting surveydesk", zap.String("version", version.Get()))

	store := token.NewMemoryStore()
	client := &http.Client{Timeout: cfg.API.Timeout}
	sess := session.NewManager(log, store, cfg.API.BaseURL, client)
	sess.OnSessionExpired(func() {
		log.Warn("session expired, log in again")
	})

	ctx := context.Background()
	user, err := sess.Login(ctx, credentials())
	if err != nil {
		log.Fatal("login failed", zap.Error(err))
	}
	log.Info("authenticated", zap.String("username", user.Username), zap.String("role", user.Role))

	api := gateway.New(log, store, sess, client)
	if count, err := projectCount(ctx, api, cfg.API.BaseURL); err != nil {
		log.Warn("could not list projects", zap.Error(err))
	} else {
		log.Info("projects available", zap.Int("count", count))
	}

	mx := metrics.New(cfg.Metrics)
	if metricsAddr != "" {
		go serveMetrics(log, mx)
	}

	router := realtime.NewRouter(log)

	center := notify.NewCenter(log,
		notify.NewStore(log, cfg.Notify.MaxItems),
		notify.NewDispatcher(log),
		mx)
	center.Attach(router)
	center.Toasts().Register("cli", printToast)

	conn := realtime.NewManager(log, cfg.Realtime, store, router, realtime.WithMetrics(mx))
	conn.OnStateChange("cli", func(s realtime.State) {
		log.Info("connection state changed", zap.Stringer("state", s))
	})

	if err := conn.Connect(); err != nil {
		log.Fatal("failed to open realtime channel", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	conn.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess.Logout(shutdownCtx)

	unread := center.Store().Unread()
	log.Info("session closed", zap.Int("unread_notifications", unread))
}

// projectCount lists the projects visible to the session, going through
// the gateway so an expired access token is refreshed transparently.
func projectCount(ctx context.Context, api *gateway.Gateway, baseURL string) (int, error) {
	resp, err := api.Do(ctx, &gateway.Request{
		Method: http.MethodGet,
		URL:    strings.TrimRight(baseURL, "/") + "/api/projects/",
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return int(gjson.GetBytes(body, "count").Int()), nil
}

func printToast(n notify.Notification) {
	fmt.Printf("[%s] %s: %s (%s)\n",
		strings.ToUpper(string(n.Severity)),
		n.Title,
		n.Message,
		n.Timestamp.Local().Format("15:04:05"))
}

func serveMetrics(log *zap.Logger, mx *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mx.Handler())
	log.Info("metrics endpoint listening", zap.String("addr", metricsAddr))
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		log.Error("metrics endpoint failed", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
