package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/server"
	"github.com/usedigest/digest/store"
	"github.com/usedigest/digest/store/db"
)

const greetingBanner = `digest - read an article, keep the concepts.`

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "digest",
		Short: "An article digester with a per-user concept memory",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				cancel()
				slog.Error("failed to create db driver", slog.String("error", err.Error()))
				return
			}
			if err := dbDriver.Migrate(ctx); err != nil {
				cancel()
				slog.Error("failed to migrate database", slog.String("error", err.Error()))
				return
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				cancel()
				slog.Error("failed to create server", slog.String("error", err.Error()))
				return
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				slog.Info("received signal, shutting down", slog.String("signal", sig.String()))
				s.Shutdown(ctx)
				cancel()
			}()

			printGreetings()

			if err := s.Start(ctx); err != nil && err != http.ErrServerClosed {
				slog.Error("failed to start server", slog.String("error", err.Error()))
				cancel()
			}

			// Wait for signal handling to finish.
			<-ctx.Done()
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8230)
	viper.SetDefault("data", ".")
	viper.SetDefault("frontend-origin", "*")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("frontend-origin", "*", "origin allowed by CORS")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("digest")
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	instanceProfile = &profile.Profile{
		Mode:           viper.GetString("mode"),
		Addr:           viper.GetString("addr"),
		Port:           viper.GetInt("port"),
		Data:           viper.GetString("data"),
		Driver:         viper.GetString("driver"),
		DSN:            viper.GetString("dsn"),
		FrontendOrigin: viper.GetString("frontend-origin"),
		Version:        "0.1.0",
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printGreetings() {
	fmt.Println(greetingBanner)
	fmt.Printf("Version %s has been started on port %d\n", instanceProfile.Version, instanceProfile.Port)
	fmt.Printf("Mode: %s, Driver: %s, Data: %s\n", instanceProfile.Mode, instanceProfile.Driver, instanceProfile.Data)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run command", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
