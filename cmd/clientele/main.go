/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tomoncle/clientele"
	"github.com/tomoncle/clientele/api"
	"github.com/tomoncle/clientele/clients"
	"github.com/tomoncle/clientele/database"
	"github.com/tomoncle/clientele/utils"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	envFile    string
	logLevel   string
	listenAddr string
	seedEnv    string
	seedDir    string
)

var log = utils.NewLogger("MAIN")

func main() {
	rootCmd := &cobra.Command{
		Use:   "clientele",
		Short: "Clientele - client records service",
		Long:  `Clientele stores client records and serves create, update, delete, lookup and paginated search over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			level := logLevel
			if level == "" {
				level = utils.EnvDefaultString("LOG_LEVEL", "info")
			}
			utils.ConfigureLogLevel(level)
			utils.ConfigureConsoleLogFormat(utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults + env when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (or set LOG_LEVEL env var)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (or set LISTEN_ADDR env var, default :8080)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of registered models",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute seed SQL files",
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVar(&seedEnv, "environment", "", "seed environment directory (overrides config)")
	seedCmd.Flags().StringVar(&seedDir, "dir", "", "seed SQL root directory (overrides config)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clientele %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDatabase(runMigrations bool) (*database.Config, error) {
	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.ConnectionConfig.EnableMetrics {
		if err := database.RegisterMetrics(nil); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	if _, err := database.InitDatabaseWithOptions(cfg, runMigrations); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := openDatabase(false)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DataMigrateConfig.EnableMigrateOnStartup {
		if err := database.RunMigrations(ctx); err != nil {
			return err
		}
	}

	addr := listenAddr
	if addr == "" {
		addr = utils.EnvDefaultString("LISTEN_ADDR", ":8080")
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.Config{Clients: clientele.NewClientService(clients.RequiredFields{})}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).WithField("version", version).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if _, err := openDatabase(false); err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()
	return database.RunMigrations(cmd.Context())
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := openDatabase(false)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	env := cfg.DataInitConfig.Environment
	if seedEnv != "" {
		env = seedEnv
	}
	dir := cfg.DataInitConfig.Filepath
	if seedDir != "" {
		dir = seedDir
	}
	return database.InitDataWithSQL(cmd.Context(), env, dir)
}
