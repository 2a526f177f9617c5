// Package api stellt die optionale Status-API des Greeters bereit.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/api/handlers"
	"face-greeter-go/internal/api/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RouteRegistrar registriert zusätzliche Routen, z.B. den Debug-Service der Kamera
type RouteRegistrar interface {
	RegisterRoutes(router gin.IRoutes)
}

// NewRouter erstellt die Gin-Engine mit allen Routen. extra darf nil-Einträge enthalten.
func NewRouter(deps handlers.Dependencies, extra ...RouteRegistrar) *gin.Engine {
	if deps.Config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(deps.Config.Server.SessionKey))
	store.Options(sessions.Options{Path: "/", MaxAge: 86400 * 30, HttpOnly: true})
	router.Use(sessions.Sessions("face-greeter", store))
	router.Use(middleware.I18n(deps.Phrases))

	handlers.NewAPIHandler(deps).RegisterRoutes(router.Group("/api"))

	for _, r := range extra {
		if r != nil {
			r.RegisterRoutes(router)
		}
	}

	if deps.Config.Snapshots.Enabled && deps.Config.Server.SnapshotURL != "" {
		router.Static(deps.Config.Server.SnapshotURL, deps.Config.Snapshots.Dir)
		log.Infof("Serving snapshots from %s under %s", deps.Config.Snapshots.Dir, deps.Config.Server.SnapshotURL)
	}

	return router
}

// Server ist der HTTP-Server der Status-API
type Server struct {
	http *http.Server
}

// NewServer erstellt den Server für cfg.Host:cfg.Port
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start startet den Server im Hintergrund
func (s *Server) Start() {
	go func() {
		log.Infof("Starting status API on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Status API failed: %v", err)
		}
	}()
}

// Shutdown beendet den Server; offene SSE-Verbindungen werden nach Ablauf von ctx getrennt
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return s.http.Close()
		}
		return err
	}
	return nil
}
