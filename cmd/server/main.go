package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/omegachat/omegachat/internal/api"
	"github.com/omegachat/omegachat/internal/blob"
	"github.com/omegachat/omegachat/internal/config"
	"github.com/omegachat/omegachat/internal/database"
	"github.com/omegachat/omegachat/internal/server"
	"github.com/omegachat/omegachat/internal/stats"
)

const shutdownTimeout = 5 * time.Second

type stringSliceFlag []string

func (f *stringSliceFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *stringSliceFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

var (
	addr       = flag.String("addr", "localhost:8000", "server address")
	dsn        = flag.String("dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "postgres connection string")
	signingKey = flag.String("signing-key", "", "base64 encoded JWT signing secret")
	uploadDir  = flag.String("upload-dir", "./uploads", "directory for uploaded files")

	allowedOrigins stringSliceFlag
)

func main() {
	flag.Var(&allowedOrigins, "allowed-origin", "allowed CORS origin, repeatable")
	flag.Parse()

	logger := log.New(os.Stderr, "[omega-chat] ", log.LstdFlags)

	secret := *signingKey
	if secret == "" {
		secret = os.Getenv("OMEGACHAT_SIGNING_KEY")
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = stringSliceFlag{"http://localhost:8000"}
	}

	cfg, err := config.NewConfig(*addr, *dsn, secret, *uploadDir, allowedOrigins)
	if err != nil {
		logger.Fatalln("config:", err)
	}

	db, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalln("db open:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatalln("db migrate:", err)
	}

	blobs, err := blob.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		logger.Fatalln("blob store:", err)
	}

	statsUpdater := stats.NewStatsUpdater()
	chatServer := server.NewChatServer(logger, db, statsUpdater)
	app := api.NewOmegaChatApp(cfg, logger, db, chatServer, blobs, statsUpdater)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	logger.Println("stopping server")

	shutDownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("shutdown:", err)
	}

	logger.Println("shutdown complete")
}
