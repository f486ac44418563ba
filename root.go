package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/doomdeck-api/config"
	"github.com/andrewpaige1/doomdeck-api/logging"
	"gorm.io/gorm"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	env        *config.Environment
	configErr  error

	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
}

func (c *commandContext) ensureConfig() (*config.Environment, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
		}
		env, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{Level: env.LogLevel, Format: env.LogFormat})
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logger)
		c.env = env
	})
	return c.env, c.configErr
}

func (c *commandContext) database() (*gorm.DB, error) {
	c.dbOnce.Do(func() {
		env, err := c.ensureConfig()
		if err != nil {
			c.dbErr = err
			return
		}
		c.db, c.dbErr = config.Connect(env.DatabaseURL)
	})
	return c.db, c.dbErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "doomdeck",
		Short:         "AI flashcard generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newChatsCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newChunkCommand(ctx))

	return rootCmd
}
