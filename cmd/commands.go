package main

import (
	"errors"
	"fmt"
	"time"

	"EventSeries/internal/api"
	"EventSeries/internal/auth"
	"EventSeries/internal/db"
	"EventSeries/internal/metrics"
	"EventSeries/internal/repository"
	"EventSeries/internal/seed"
	"EventSeries/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := bootstrap()
		if err != nil {
			return err
		}
		// 库表不存在则自动创建
		if err := db.Migrate(store.DB()); err != nil {
			return err
		}
		logger.Info("数据库表结构检查完成（不存在则已创建）")

		issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}
		metrics.Register()

		gin.SetMode(cfg.Server.Mode)
		logger.Infof("Gin运行模式: %s", cfg.Server.Mode)
		r := api.NewRouter(api.RouterOptions{
			Store:            store,
			Issuer:           issuer,
			Logger:           logger,
			Mode:             cfg.Server.Mode,
			CORSOrigins:      cfg.Server.CORSOrigins,
			BibRetryAttempts: cfg.Registration.BibRetryAttempts,
		})

		port := cfg.Server.Port
		logger.Infof("服务启动成功，端口：%d", port)
		return r.Run(fmt.Sprintf(":%d", port))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.Migrate(store.DB()); err != nil {
			return err
		}
		logger.Info("数据库迁移完成")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default institutions and users",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.Migrate(store.DB()); err != nil {
			return err
		}
		if err := seed.Run(cmd.Context(), store, logger); err != nil {
			return fmt.Errorf("写入初始数据失败: %w", err)
		}
		logger.Info("初始数据写入完成")
		return nil
	},
}

var (
	tokenUsername string
	tokenPassword string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a local user (development)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := bootstrap()
		if err != nil {
			return err
		}
		user, err := store.Users.GetByUsername(cmd.Context(), tokenUsername)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("用户不存在: %s", tokenUsername)
		}
		if err != nil {
			return err
		}
		if !service.CheckPassword(user, tokenPassword) {
			return errors.New("密码错误")
		}
		issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		token, err := issuer.Issue(auth.Identity{
			UserID:        user.ID,
			Role:          user.Role,
			InstitutionID: user.InstitutionID,
		}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUsername, "username", "u", "", "username")
	tokenCmd.Flags().StringVarP(&tokenPassword, "password", "p", "", "password")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default from config)")
	_ = tokenCmd.MarkFlagRequired("username")
	_ = tokenCmd.MarkFlagRequired("password")
}
