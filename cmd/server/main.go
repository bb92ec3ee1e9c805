package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/service"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/config"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/external/lark"
	openaiext "github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/external/openai"
	receiptext "github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/external/receipt"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/repository"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/sqlite"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/storage"
	httpadapter "github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/interfaces/http"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/report"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/pkg/database"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/pkg/utils"
)

func main() {
	// Load .env for local development; missing file is fine.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Receipts.StorageDir, 0755); err != nil {
		logger.Fatal("Failed to create receipt storage directory", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	policyRepo := repository.NewPolicyRepository(db.DB, logger)
	receiptRepo := repository.NewReceiptRepository(db.DB, logger)

	var notifier port.Notifier
	if cfg.Lark.AppID != "" {
		larkClient := lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		notifier = lark.NewNotifier(larkClient, logger)
		logger.Info("Lark notifications enabled")
	} else {
		logger.Info("Lark notifications disabled, no credentials configured")
	}

	var renderer port.ReceiptRenderer
	var scanner port.ReceiptScanner
	if cfg.OpenAI.APIKey != "" {
		renderer = receiptext.NewRenderer(logger)
		scanner = openaiext.NewScanner(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		logger.Info("Receipt extraction enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		logger.Info("Receipt extraction disabled, no API key configured")
	}

	serviceLogger := &zapLoggerAdapter{logger: logger}
	fileStorage := storage.NewLocalFileStorage(cfg.Receipts.StorageDir, logger)

	expenseService := service.NewExpenseService(
		expenseRepo, stepRepo, userRepo, policyRepo, txManager, notifier, serviceLogger)
	policyService := service.NewPolicyService(policyRepo, userRepo, serviceLogger)
	userService := service.NewUserService(userRepo, serviceLogger)
	receiptService := service.NewReceiptService(
		expenseRepo, receiptRepo, fileStorage, renderer, scanner,
		cfg.Receipts.StorageDir, serviceLogger)
	exporter := report.NewExporter(expenseRepo, logger)

	server := httpadapter.NewServer(
		httpadapter.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		expenseService, policyService, userService, receiptService, exporter,
		serviceLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces
// used by the service and HTTP layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
