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

// Command docauth manages the docauth database: migrations, seeding, health
// and foreign key configuration.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docauth/docauth/database"
	"github.com/docauth/docauth/model"
	"github.com/docauth/docauth/utils"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var log = utils.GetLogger("DOCAUTH")

type options struct {
	configPath string
	output     string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "docauth",
		Short:         "Manage the docauth database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logLevel != "" {
				utils.ConfigureLogLevel(opts.logLevel)
			}
			model.Register()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/docauth.yaml", "path to the YAML configuration")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newHealthCommand(opts),
		newStatsCommand(opts),
		newForeignKeyCommand(opts),
		newHashPasswordCommand(),
	)
	return root
}

// connect loads the configuration and opens the global database.
func connect(ctx context.Context, opts *options, runMigrations, seedData bool) (*database.Config, error) {
	cfg, err := database.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if _, err := database.InitDatabaseWithOptions(ctx, cfg, runMigrations, seedData); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newMigrateCommand(opts *options) *cobra.Command {
	var seed, dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables, add foreign keys and record applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := connect(cmd.Context(), opts, !dryRun, seed && !dryRun)
			if err != nil {
				return err
			}
			defer database.CloseDB()

			mm := database.NewMigrationManager(database.GetDB(), database.GetLogger(), cfg)
			if dryRun {
				pending, err := mm.PendingMigrations(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, pendingReport(pending))
			}
			applied, err := mm.GetAppliedMigrations(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, applied)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed data after migrating")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}

type pendingMigration struct {
	Version     string `json:"version" yaml:"version"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

func pendingReport(items []database.MigrationItem) []pendingMigration {
	report := make([]pendingMigration, len(items))
	for i, item := range items {
		report[i] = pendingMigration{Version: item.Version, Name: item.Name, Description: item.Description}
	}
	return report
}

func newSeedCommand(opts *options) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute the SQL seed files of an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := connect(cmd.Context(), opts, false, false)
			if err != nil {
				return err
			}
			defer database.CloseDB()

			if env == "" {
				env = cfg.DataInitConfig.Environment
			}
			seeder := database.NewSQLInitManager(database.GetDB(), env)
			if cfg.DataInitConfig.Filepath != "" {
				seeder.SetSQLRootPath(cfg.DataInitConfig.Filepath)
			}
			results, err := seeder.Execute(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("environment", env).WithField("files", len(results)).Info("seed completed")
			return render(cmd.OutOrStdout(), opts.output, seedReport(results))
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "seed environment (defaults to init.environment or NODE_ENV)")
	return cmd
}

type seedFile struct {
	File         string `json:"file" yaml:"file"`
	Statements   int    `json:"statements" yaml:"statements"`
	RowsAffected int64  `json:"rows_affected" yaml:"rows_affected"`
	Duration     string `json:"duration" yaml:"duration"`
}

func seedReport(results []database.ExecutionResult) []seedFile {
	report := make([]seedFile, len(results))
	for i, r := range results {
		report[i] = seedFile{
			File:         r.File,
			Statements:   r.Statements,
			RowsAffected: r.RowsAffected,
			Duration:     r.Duration.String(),
		}
	}
	return report
}

func newHealthCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the database and report its health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(cmd.Context(), opts, false, false); err != nil {
				return err
			}
			defer database.CloseDB()

			status := database.GetHealthStatus(cmd.Context())
			if err := render(cmd.OutOrStdout(), opts.output, status); err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("database unhealthy: %s", status.LastError)
			}
			return nil
		},
	}
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print connection pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(cmd.Context(), opts, false, false); err != nil {
				return err
			}
			defer database.CloseDB()
			return render(cmd.OutOrStdout(), opts.output, database.GetDatabaseStats())
		},
	}
}

func newForeignKeyCommand(opts *options) *cobra.Command {
	fk := &cobra.Command{
		Use:   "fk",
		Short: "Inspect foreign key constraints",
	}
	fk.AddCommand(
		&cobra.Command{
			Use:   "export <path>",
			Short: "Write the foreign key constraints to a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				manager := database.NewConfigurableForeignKeyManager(database.GetLogger(), foreignKeyFile(opts))
				if err := manager.ExportToConfig(args[0]); err != nil {
					return err
				}
				log.WithField("path", args[0]).Infof("exported %d foreign keys", len(manager.ListAllConstraints()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the foreign key constraints for invalid definitions",
			RunE: func(cmd *cobra.Command, args []string) error {
				manager := database.NewConfigurableForeignKeyManager(database.GetLogger(), foreignKeyFile(opts))
				errs := manager.ValidateConstraints()
				for _, err := range errs {
					log.Warn(err.Error())
				}
				if len(errs) > 0 {
					return fmt.Errorf("%d invalid foreign key constraints", len(errs))
				}
				return render(cmd.OutOrStdout(), opts.output, manager.ListAllConstraints())
			},
		},
	)
	return fk
}

// foreignKeyFile reads migrate.foreign_key_file from the configuration. A
// missing configuration selects the registered constraints.
func foreignKeyFile(opts *options) string {
	cfg, err := database.LoadConfig(opts.configPath)
	if err != nil {
		return ""
	}
	return cfg.DataMigrateConfig.ForeignKeyFile
}

func render(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// newHashPasswordCommand prints a bcrypt hash for seed files such as
// DEV_ADMIN_PASSWORD_HASH. Without an argument the password is read from the
// first line of stdin.
func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
