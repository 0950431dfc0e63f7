package main

import (
	"context"
	"fmt"

	"pipeline-crm/internal/config"
	"pipeline-crm/internal/crm"
	"pipeline-crm/internal/database"
	"pipeline-crm/internal/identity"
	"pipeline-crm/internal/logger"
	"pipeline-crm/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(postgres.Open(cfg.DBDSN), cfg.DBConnectAttempts, log)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	if err := database.EnsureSchema(db); err != nil {
		log.WithError(err).Fatal("ensure schema")
	}

	users := identity.NewService(db, log.WithField("component", "identity"))
	if cfg.SeedAdmin() {
		if err := users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.WithError(err).Fatal("seed admin")
		}
	}

	r, err := server.NewRouter(cfg, server.Deps{
		Users: users,
		CRM:   crm.NewService(db, log.WithField("component", "crm")),
		Log:   log,
	})
	if err != nil {
		log.WithError(err).Fatal("build router")
	}

	if cfg.MetricsPort != "" {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		go func() {
			log.WithField("addr", metricsAddr).Info("starting metrics listener")
			if err := server.NewMetricsRouter().Run(metricsAddr); err != nil {
				log.WithError(err).Error("metrics listener stopped")
			}
		}()
	}

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.WithField("addr", addr).Info("starting server")
	if err := r.Run(addr); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
