// cmd/custos/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/semmidev/custos/internal/app"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	runJob := flag.String("run", "", "run a single job by ID and exit")
	restoreJob := flag.String("restore", "", "restore a job by ID from -artifact and exit")
	lockJob := flag.String("lock", "", "toggle the retention lock on -artifact for this job ID and exit")
	artifact := flag.String("artifact", "", "remote artifact path for -restore / -lock")
	createProfile := flag.String("create-profile", "", "create an encryption profile with this name and exit")
	gdriveAuth := flag.String("gdrive-auth", "", "run the Google Drive OAuth flow with this client secret file and exit")
	gdriveToken := flag.String("gdrive-token", "gdrive-token.json", "output path for the Google Drive token")
	authAddr := flag.String("auth-addr", ":8089", "listen address for the OAuth flow")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *gdriveAuth != "" {
		return runDriveAuth(ctx, *gdriveAuth, *gdriveToken, *authAddr)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	switch {
	case *createProfile != "":
		id, err := application.CreateEncryptionProfile(ctx, *createProfile)
		if err != nil {
			return err
		}
		fmt.Printf("encryption profile created: %s\n", id)
		return nil
	case *runJob != "":
		return application.RunJobNow(ctx, *runJob)
	case *restoreJob != "":
		if *artifact == "" {
			return fmt.Errorf("-restore requires -artifact")
		}
		return application.RestoreJob(ctx, *restoreJob, *artifact)
	case *lockJob != "":
		if *artifact == "" {
			return fmt.Errorf("-lock requires -artifact")
		}
		locked, err := application.ToggleArtifactLock(ctx, *lockJob, *artifact)
		if err != nil {
			return err
		}
		if locked {
			fmt.Printf("%s is now locked\n", *artifact)
		} else {
			fmt.Printf("%s is now unlocked\n", *artifact)
		}
		return nil
	default:
		return application.Run(ctx)
	}
}

func runDriveAuth(ctx context.Context, clientSecretPath, tokenPath, addr string) error {
	lg, err := logger.New("info", "")
	if err != nil {
		return err
	}
	defer lg.Close()

	srv, err := app.NewDriveAuthServer(lg, clientSecretPath, tokenPath)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx, addr); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
