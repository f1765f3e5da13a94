package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/japaniel/cognates/pkg/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "cognates",
		Short: "Find cognates of a word in another language",
		Long: `cognates queries an etymological knowledge graph for the ancestors of a
word and lists the words in a target language that descend from the same
ancestors, together with the derivation chain linking each pair.

Configuration is read from $HOME/.cognates.yaml or ./.cognates.yaml and from
COGNATES_* environment variables, e.g. COGNATES_SPARQL_ENDPOINT.`,
		SilenceUsage: true,
	}
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cognates.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("db", "cognates.db", "path to the SQLite session database")
	flags.String("endpoint", "", "SPARQL endpoint of the etymology graph")
	flags.String("cache-dir", "", "directory for the persistent result cache (default: in memory)")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("database.path", flags.Lookup("db"))
	viper.BindPFlag("sparql.endpoint", flags.Lookup("endpoint"))
	viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))
}

// initConfig reads in config file and ENV variables if set. The full config
// is not loaded yet, so messages go to a stderr logger at the flag's level.
func initConfig() {
	level, err := logger.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = slog.LevelInfo
	}
	log := logger.NewDefaultLogger(level)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cognates")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("could not read config file", "error", err)
		}
		return
	}
	log.Debug("using config file", "path", viper.ConfigFileUsed())
}
