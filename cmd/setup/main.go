package main

import (
	"context"
	"flag"
	"time"

	"eventplatform/internal/cache"
	"eventplatform/internal/config"
	"eventplatform/internal/database"
	"eventplatform/internal/logger"
	"eventplatform/internal/repository"
	"eventplatform/internal/service"
)

// setup создает схему, группы ролей, типы событий и, при необходимости, администратора
func main() {
	adminUser := flag.String("admin-user", "", "username of the administrator to create or promote")
	adminPassword := flag.String("admin-password", "", "password for a newly created administrator")
	adminEmail := flag.String("admin-email", "", "email for a newly created administrator")
	deactivate := flag.String("deactivate", "", "username of an account to disable")
	activate := flag.String("activate", "", "username of an account to enable again")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	valkey, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		logger.Fatal("Failed to connect to valkey", "error", err)
	}
	defer valkey.Close()

	repos := repository.NewRepositories(db)
	services := service.NewServices(service.Deps{
		Events:        repos.Events,
		EventTypes:    repos.EventTypes,
		Registrations: repos.Registrations,
		Users:         repos.Users,
		Sessions:      valkey,
		BcryptCost:    cfg.BcryptCost,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := services.Accounts.Bootstrap(ctx); err != nil {
		logger.Fatal("Failed to create groups and event types", "error", err)
	}
	logger.Get().Info("Groups and event types are in place")

	for username, active := range map[string]bool{*deactivate: false, *activate: true} {
		if username == "" {
			continue
		}
		if _, err := services.Accounts.SetActive(ctx, username, active); err != nil {
			logger.Fatal("Failed to change account state", "error", err, "username", username)
		}
		logger.Get().Info("Account state changed", "username", username, "active", active)
	}

	if *adminUser == "" {
		return
	}

	user, err := services.Accounts.CreateAdmin(ctx, *adminUser, *adminPassword, *adminEmail)
	if err != nil {
		logger.Fatal("Failed to create administrator", "error", err, "username", *adminUser)
	}
	logger.Get().Info("Administrator ready", "user_id", user.UserID, "username", user.Username, "groups", user.Groups)
}
