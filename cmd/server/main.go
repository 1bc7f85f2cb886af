package main

import (
	"net/http"

	"github.com/esusuhq/esusu-engine/config"
	"github.com/esusuhq/esusu-engine/db"
	"github.com/esusuhq/esusu-engine/internal/notify"
	"github.com/esusuhq/esusu-engine/internal/repository"
	"github.com/esusuhq/esusu-engine/internal/server"
	"github.com/esusuhq/esusu-engine/internal/service"
	"github.com/esusuhq/esusu-engine/utils"
)

func main() {
	logger := utils.InitLogger()
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	database, err := db.ConnectDb(cfg.DBURL, logger)
	if err != nil {
		logger.Fatal(err)
	}

	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	repo := repository.NewRepository(database, logger)

	var notifier service.Notifier
	if cfg.TelegramBotToken != "" && cfg.AdminChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.AdminChatID, logger)
		if err != nil {
			logger.Warnf("Telegram notifier disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	svc := service.NewService(repo, logger, notifier)
	srv := server.NewServer(svc, logger, cfg.JWTSecret)

	logger.Infof("🚀 Listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		logger.Fatal(err)
	}
}
