// Command cobload fills the collaborative object cache and the alias
// directory read by seed-httpd.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"seedhttpd/api/internal/alias"
	"seedhttpd/api/internal/cobcache"
	"seedhttpd/api/internal/config"
	"seedhttpd/api/internal/identity"
	"seedhttpd/api/internal/logger"
)

var params struct {
	migrate bool
}

var rootCmd = &cobra.Command{
	Use:          "cobload",
	Short:        "Load issues, patches and aliases for seed-httpd",
	SilenceUsage: true,
}

var importCmd = &cobra.Command{
	Use:   "import <dump.json>",
	Short: "Import the issues and patches of one repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ctx := cmd.Context()
		log := logger.Named("cobload")

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		dump, err := cobcache.DecodeDump(f)
		if err != nil {
			return err
		}

		db, err := cobcache.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if params.migrate {
			if err := cobcache.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
				return err
			}
		}

		issues, patches, err := cobcache.Import(ctx, cobcache.NewPostgresStore(db), dump)
		if err != nil {
			return err
		}
		log.Info().Str("rid", dump.RID.String()).Int("issues", issues).Int("patches", patches).Msg("imported")

		if len(dump.Aliases) == 0 {
			return nil
		}
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Warn().Int("aliases", len(dump.Aliases)).Msg("REDIS_URL not set, skipping aliases")
			return nil
		}
		return setAliases(ctx, cfg.RedisURL, dump.Aliases)
	},
}

var aliasCmd = &cobra.Command{
	Use:   "alias <nid> <name>",
	Short: "Set the alias of a node in the redis directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required")
		}
		nid, err := identity.ParsePublicKey(args[0])
		if err != nil {
			return err
		}
		return setAliases(cmd.Context(), cfg.RedisURL, map[identity.PublicKey]string{nid: args[1]})
	},
}

func setAliases(ctx context.Context, redisURL string, aliases map[identity.PublicKey]string) error {
	dir, err := alias.NewRedisDirectory(redisURL)
	if err != nil {
		return err
	}
	defer dir.Close()
	for nid, name := range aliases {
		if err := dir.Set(ctx, nid, name); err != nil {
			return err
		}
	}
	logger.Named("cobload").Info().Int("aliases", len(aliases)).Msg("aliases stored")
	return nil
}

func init() {
	importCmd.Flags().BoolVar(&params.migrate, "migrate", true, "apply database migrations before importing")
	rootCmd.AddCommand(importCmd, aliasCmd)
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "cobload"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
