package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusfind/campusfind/ai"
	"github.com/campusfind/campusfind/internal/profile"
	"github.com/campusfind/campusfind/internal/version"
	"github.com/campusfind/campusfind/matcher"
	"github.com/campusfind/campusfind/server"
	apiv1 "github.com/campusfind/campusfind/server/router/api/v1"
	"github.com/campusfind/campusfind/store"
	"github.com/campusfind/campusfind/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "campusfind",
	Short: `A campus lost-and-found matching service. Lost-item requests are matched against the found-item inventory by semantic similarity.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a development convenience; absence is not an error.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			InstanceURL: viper.GetString("instance-url"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		var embedder ai.EmbeddingService
		if instanceProfile.IsEmbeddingEnabled() {
			embedder, err = ai.NewEmbeddingService(ai.NewEmbeddingConfigFromProfile(instanceProfile))
			if err != nil {
				slog.Error("failed to create embedding service", "error", err)
				return
			}
		} else {
			slog.Warn("no embedding provider configured; matching passes will fail until one is set")
			embedder = ai.NewDisabledEmbeddingService(instanceProfile.EmbeddingDimensions)
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		metrics := matcher.NewMetrics(registry)
		engine := matcher.NewEngine(storeInstance, embedder, metrics,
			time.Duration(instanceProfile.EmbeddingTimeout)*time.Second,
		)
		dispatcher := matcher.NewDispatcher(engine, storeInstance, metrics,
			&matcher.Options{
				Limit:             instanceProfile.MatchLimit,
				DistanceThreshold: instanceProfile.MatchDistanceThreshold,
			},
			int64(instanceProfile.MatchFanOutConcurrency),
			time.Duration(instanceProfile.MatchPassTimeout)*time.Second,
		)

		apiService := apiv1.NewAPIV1Service(instanceProfile, storeInstance, engine, dispatcher)
		s, err := server.NewServer(ctx, instanceProfile, storeInstance, apiService, registry)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal used by most process
		// managers (systemd, kubernetes).
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				return
			}
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			// Let in-flight matching passes finish before closing the store.
			dispatcher.Wait()
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 28091)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28091, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your campusfind instance")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("campusfind")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("CampusFind %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		fmt.Fprintf(os.Stderr, "Build: commit %s at %s\n", version.GitCommit, version.BuildTime)
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
