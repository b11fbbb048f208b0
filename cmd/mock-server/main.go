package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/surveydesk/surveydesk/internal/auth/jwt"
	"github.com/surveydesk/surveydesk/internal/common/config"
	"github.com/surveydesk/surveydesk/pkg/metrics"
	"github.com/surveydesk/surveydesk/pkg/version"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	passwordHash []byte
}

var addr string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mock-server",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mock-server version %s\n", version.Get())
	},
}

var rootCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Mock Survey Backend",
	Long:  `Mock Survey Backend provides the auth endpoints and the notification websocket channel for local development`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVar(&addr, "addr", ":8000", "listen address")
}

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}

var users = map[string]*mockUser{
	"tester": {
		ID:           1,
		Username:     "tester",
		Email:        "tester@example.com",
		Role:         "analyst",
		passwordHash: mustHash("tester123"),
	},
	"admin": {
		ID:           2,
		Username:     "admin",
		Email:        "admin@example.com",
		Role:         "admin",
		passwordHash: mustHash("admin123"),
	},
}

func run() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting mock-server", zap.String("version", version.Get()))

	jwtSvc, err := jwt.NewService(jwt.Config{
		SecretKey:       "mock-server-development-secret-key-0001",
		AccessDuration:  15 * time.Minute,
		RefreshDuration: 24 * time.Hour,
	})
	if err != nil {
		logger.Fatal("failed to initialize jwt service", zap.Error(err))
	}

	mx := metrics.New(config.MetricsConfig{Namespace: "mock_server"})

	router := gin.Default()
	registerAuthRoutes(router, logger, jwtSvc)
	registerProjectRoutes(router, jwtSvc)
	registerWSRoutes(router, logger, jwtSvc)
	router.GET("/metrics", gin.WrapH(mx.Handler()))

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Server is running", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
	}
}

func registerAuthRoutes(router *gin.Engine, logger *zap.Logger, jwtSvc *jwt.Service) {
	router.POST("/api/auth/login/", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		user, ok := users[req.Username]
		if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid username or password"})
			return
		}

		access, refresh, err := jwtSvc.GeneratePair(user.ID, user.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue tokens"})
			return
		}

		logger.Info("user logged in", zap.String("username", user.Username))
		c.JSON(http.StatusOK, gin.H{
			"access":  access,
			"refresh": refresh,
			"user":    user,
		})
	})

	router.POST("/api/auth/refresh/", func(c *gin.Context) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		claims, err := jwtSvc.ValidateToken(req.Refresh, jwt.TypeRefresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "refresh token is invalid or expired"})
			return
		}

		access, err := jwtSvc.GenerateAccess(claims.UserID, claims.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access": access})
	})

	router.POST("/api/auth/logout/", func(c *gin.Context) {
		// stateless tokens, nothing to revoke server-side
		c.Status(http.StatusNoContent)
	})
}

// bearerAuth validates the Authorization header and aborts with 401 when
// the access token is missing or stale, which exercises the client's
// refresh-and-retry path.
func bearerAuth(jwtSvc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}
		claims, err := jwtSvc.ValidateToken(tokenStr, jwt.TypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "token is invalid or expired"})
			return
		}
		c.Set("username", claims.Username)
		c.Next()
	}
}

func registerProjectRoutes(router *gin.Engine, jwtSvc *jwt.Service) {
	projects := []gin.H{
		{"id": 101, "name": "Consumer Pulse Q3", "status": "active", "testcases": 14},
		{"id": 102, "name": "Brand Tracker 2026", "status": "active", "testcases": 8},
		{"id": 103, "name": "Churn Deep Dive", "status": "archived", "testcases": 21},
	}

	authed := router.Group("/api", bearerAuth(jwtSvc))
	authed.GET("/projects/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"results": projects, "count": len(projects)})
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerWSRoutes(router *gin.Engine, logger *zap.Logger, jwtSvc *jwt.Service) {
	router.GET("/ws/:namespace", func(c *gin.Context) {
		tokenStr := c.Query("token")
		claims, err := jwtSvc.ValidateToken(tokenStr, jwt.TypeAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid or missing token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		logger.Info("client connected",
			zap.String("namespace", c.Param("namespace")),
			zap.String("username", claims.Username))
		go serveChannel(logger, conn)
	})
}

// serveChannel reads subscribe frames and emits a rotating set of demo
// events until the client goes away.
func serveChannel(logger *zap.Logger, conn *websocket.Conn) {
	defer conn.Close()

	subscribed := make(chan string, 32)
	go func() {
		defer close(subscribed)
		for {
			var frame struct {
				Type  string `json:"type"`
				Event string `json:"event"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type == "subscribe" {
				subscribed <- frame.Event
			}
		}
	}()

	demo := demoFrames()
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	events := make(map[string]bool)
	i := 0
	for {
		select {
		case event, ok := <-subscribed:
			if !ok {
				return
			}
			events[event] = true
			logger.Debug("client subscribed", zap.String("event", event))
		case <-ticker.C:
			frame := demo[i%len(demo)]
			i++
			if !events[frame.Type] {
				continue
			}
			frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

type demoFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func demoFrames() []demoFrame {
	return []demoFrame{
		{Type: "project_created", Data: json.RawMessage(`{"project_name":"Consumer Pulse Q3"}`)},
		{Type: "idatagenerator_mdd_processing", Data: json.RawMessage(`{"project_name":"Consumer Pulse Q3"}`)},
		{Type: "idatagenerator_mdd_update", Data: json.RawMessage(`{"project_name":"Consumer Pulse Q3","progress":60}`)},
		{Type: "idatagenerator_mdd_processed", Data: json.RawMessage(`{"project_name":"Consumer Pulse Q3","variables_count":247}`)},
		{Type: "testcase_created", Data: json.RawMessage(`{"testcase_name":"Straightliner check","project_name":"Consumer Pulse Q3"}`)},
		{Type: "idatagenerator_data_progress", Data: json.RawMessage(`{"completed":350,"total":500}`)},
		{Type: "respondent_completed", Data: json.RawMessage(`{"respondent_id":"R-1042","testcase_name":"Straightliner check"}`)},
		{Type: "testcase_completed", Data: json.RawMessage(`{"testcase_name":"Straightliner check","status":"passed"}`)},
		{Type: "error", Data: json.RawMessage(`{"message":"Data generation worker restarted"}`)},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
