package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coursehub/gatekeeper/pkg/api"
	"github.com/coursehub/gatekeeper/pkg/audit"
	"github.com/coursehub/gatekeeper/pkg/config"
	"github.com/coursehub/gatekeeper/pkg/sanitize"
	"github.com/coursehub/gatekeeper/pkg/version"
	"github.com/coursehub/gatekeeper/pkg/whitelist"
)

func main() {
	debug := false
	showVersion := false
	flag.BoolVar(&debug, "debug", false, "enable debug level logging")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		info := version.Get()
		fmt.Printf("gatekeeper %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
		return
	}

	// Development convenience; missing .env is fine.
	_ = godotenv.Load()

	zl := setupLogger(debug)
	log := zl.Sugar()
	log.Infow("Starting gatekeeper gateway", "version", version.Version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading gateway config: %v", err)
	}
	if cfg.Auth.Secret == "" {
		log.Errorw("credential signing secret is not set; all authenticated routes will fail",
			"env", config.EnvTokenSecret)
	}

	if debug {
		log.Infof("%#v", cfg)
	}

	auditMgr := buildAudit(zl, cfg)
	defer func() {
		if err := auditMgr.Close(); err != nil {
			log.Warnw("closing audit manager", "error", err)
		}
	}()

	checker := buildChecker(log, cfg)

	auth := api.NewAuth(log, cfg, auditMgr)
	admin := api.NewAdminGuard(checker, log, auditMgr)
	sanitizer := sanitize.NewMiddleware(log, auditMgr)

	server := api.NewServer(zl, cfg, debug, auth, admin, auditMgr)
	defer server.Close()

	err = server.RegisterAll(sanitizer, []api.APIController{
		api.NewProfileController(server.OptionalAuth()),
		api.NewManageController(server.RequireAdmin()),
	})
	if err != nil {
		log.Fatalf("Error registering gateway controllers: %v", err)
	}

	server.Listen()
}

func buildAudit(zl *zap.Logger, cfg config.Config) *audit.Manager {
	sinks := []audit.Sink{audit.NewLogSink(zl)}
	if cfg.Audit.Kafka.Enabled {
		kafkaSink, err := audit.NewKafkaSink(audit.KafkaSinkConfig{
			Brokers: cfg.Audit.Kafka.Brokers,
			Topic:   cfg.Audit.Kafka.Topic,
		}, zl)
		if err != nil {
			zl.Sugar().Fatalf("Error building kafka audit sink: %v", err)
		}
		sinks = append(sinks, kafkaSink)
	}

	var sink audit.Sink = sinks[0]
	if len(sinks) > 1 {
		sink = audit.NewMultiSink(sinks...)
	}
	return audit.NewManager(sink, audit.DefaultManagerConfig(), zl)
}

func buildChecker(log *zap.SugaredLogger, cfg config.Config) whitelist.Checker {
	if cfg.Whitelist.DatabaseURL == "" {
		log.Warnw("no whitelist database configured; using static admin list",
			"admins", len(cfg.Whitelist.StaticAdmins))
		return whitelist.NewStaticChecker(cfg.Whitelist.StaticAdmins...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	checker, err := whitelist.NewPostgresChecker(ctx, cfg.Whitelist.DatabaseURL, log)
	if err != nil {
		log.Fatalf("Error connecting admin whitelist database: %v", err)
	}
	return checker
}

func setupLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Avoid noisy traces on WARN/INFO logs.
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return logger
}
