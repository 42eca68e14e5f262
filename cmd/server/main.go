package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	accessbiz "github.com/sealvault/sealvault-backend/internal/access/biz"
	accessdata "github.com/sealvault/sealvault-backend/internal/access/data"
	accesssvc "github.com/sealvault/sealvault-backend/internal/access/service"
	"github.com/sealvault/sealvault-backend/internal/conf"
	ledgerbiz "github.com/sealvault/sealvault-backend/internal/ledger/biz"
	ledgerdata "github.com/sealvault/sealvault-backend/internal/ledger/data"
	ledgersvc "github.com/sealvault/sealvault-backend/internal/ledger/service"
	"github.com/sealvault/sealvault-backend/internal/pkg/blobstore"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	"github.com/sealvault/sealvault-backend/internal/pkg/events"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/sealvault/sealvault-backend/internal/server"
	transferbiz "github.com/sealvault/sealvault-backend/internal/transfer/biz"
	transferdata "github.com/sealvault/sealvault-backend/internal/transfer/data"
	transfersvc "github.com/sealvault/sealvault-backend/internal/transfer/service"
	uploadbiz "github.com/sealvault/sealvault-backend/internal/upload/biz"
	uploaddata "github.com/sealvault/sealvault-backend/internal/upload/data"
	uploadsvc "github.com/sealvault/sealvault-backend/internal/upload/service"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	config, err := conf.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(config, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(config *conf.Config, log *logger.Logger) error {
	ctx := context.Background()

	db, err := database.New(&config.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if config.Database.AutoMigrate {
		err := db.AutoMigrate(
			&transferdata.TransferPO{},
			&accessdata.AccessControlPO{},
			&accessdata.UserAccessRecordPO{},
			&ledgerdata.ProtocolLedgerPO{},
			&ledgerdata.UserActivityPO{},
			&uploaddata.FileRecordPO{},
		)
		if err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr(),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	blobs, err := blobstore.New(ctx, &config.BlobStore, log)
	if err != nil {
		return fmt.Errorf("connect blob store: %w", err)
	}

	publisher := events.NewPublisher(redisClient, log)

	ledgerRepo := ledgerdata.NewLedgerRepo(db)
	activityRepo := ledgerdata.NewActivityRepo(db)
	transferRepo := transferdata.NewTransferRepo(db)
	accessRepo := accessdata.NewAccessControlRepo(db)
	fileRepo := uploaddata.NewFileRepo(db)

	ledgerUC := ledgerbiz.NewLedgerUseCase(ledgerRepo, activityRepo, db, publisher)
	transferUC := transferbiz.NewTransferUseCase(transferRepo, ledgerUC, db, publisher)
	accessUC := accessbiz.NewAccessControlUseCase(accessRepo, db, publisher)
	uploadUC := uploadbiz.NewUploadUseCase(fileRepo, ledgerUC, db, blobs)

	// The singleton ledger row must exist before any fee collection.
	if err := ledgerUC.Bootstrap(ctx, config.Protocol.AdminAddress, config.Protocol.FeeRateBps, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("bootstrap protocol ledger: %w", err)
	}
	log.Info("protocol ledger ready",
		zap.String("admin", config.Protocol.AdminAddress),
		zap.Uint64("fee_rate_bps", config.Protocol.FeeRateBps))

	httpServer := server.NewHTTPServer(config, log, db, redisClient, server.Services{
		Transfer: transfersvc.NewTransferService(transferUC, log),
		Access:   accesssvc.NewAccessService(accessUC, log),
		Ledger:   ledgersvc.NewLedgerService(ledgerUC, transferUC, log),
		Upload:   uploadsvc.NewUploadService(uploadUC, log),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
