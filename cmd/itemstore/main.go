package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harvestor-labs/itemstore/internal/config"
	"github.com/harvestor-labs/itemstore/internal/database"
	"github.com/harvestor-labs/itemstore/internal/items"
	"github.com/harvestor-labs/itemstore/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "itemstore",
		Short: "Versioned item and composition store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema and data migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <user-id> <class-id> <test-id>",
		Short: "Print a composition's items in rank order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), args[0], args[1], args[2])
		},
	}

	rootCmd.AddCommand(migrateCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Database DSN or SQLite path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runMigrate() error {
	appConfig, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	logger.Info("migrations applied")
	return nil
}

func runList(ctx context.Context, rawUserID, rawClassID, rawTestID string) error {
	appConfig, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	owner, err := items.NewOwner(rawUserID, rawClassID)
	if err != nil {
		return err
	}
	testID, err := items.NewTestID(rawTestID)
	if err != nil {
		return err
	}

	store, err := items.NewService(items.ServiceConfig{
		Database:   db,
		IDProvider: items.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	views, err := store.ListComposition(ctx, owner, testID)
	if err != nil {
		return err
	}

	for _, view := range views {
		fmt.Printf("%3d  %-12s v%d  [%s] %s\n",
			view.OrderNumber, view.ItemID.String(), view.Version, view.Format, view.Question)
	}
	logger.Info("composition listed",
		zap.String("test_id", testID.String()),
		zap.Int("items", len(views)))
	return nil
}

func loadEnvironment() (config.AppConfig, *zap.Logger, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return appConfig, logger, nil
}
