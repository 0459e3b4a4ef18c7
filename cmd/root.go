package main

import (
	"fmt"

	"EventSeries/internal/config"
	"EventSeries/internal/db"
	"EventSeries/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configDir string
	logger    = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:           "eventseries",
	Short:         "Event series administration service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./config", "directory containing config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, tokenCmd)
}

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap() (*config.Config, *repository.Store, error) {
	cfg, err := config.LoadConfigFrom(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置文件失败: %w", err)
	}
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Server.Mode == "release" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.Info("配置文件加载成功")

	conn, err := db.Open(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repository.NewStore(conn), nil
}
