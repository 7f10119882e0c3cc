package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/leafbox-next/internal/app"
	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "run mode: all (default), api, worker")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if !app.ValidMode(mode) {
		stdLog.Fatalf("unknown mode %q (want all, api or worker)", mode)
	}
	printStartupBanner(cfg, mode)

	checkSecret := func(name, secret string) {
		if !isWeakSecret(secret) {
			return
		}
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("%s secret is weak or still the default; set a strong random value", name)
		}
		logger.Warnw("weak_secret", "name", name)
	}
	if mode != app.ModeWorker {
		checkSecret("admin_jwt", cfg.AdminJWT.SecretKey)
		checkSecret("user_jwt", cfg.UserJWT.SecretKey)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("server exited: %v", err)
	}
}

func printStartupBanner(cfg *config.Config, mode string) {
	fmt.Println(ansiGreen + ansiBold + "leafbox order & payment core" + ansiReset)
	fmt.Println(ansiDim + "mode=" + mode + " addr=" + cfg.Server.Addr() + " db=" + cfg.Database.Driver + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
