package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-itemtree/pkg/service"
	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
)

var (
	treeFile string
	logLevel string
)

func InitConfig() {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	if cfgFile := os.Getenv("ITREE_CONFIG"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".config", "itree"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ITREE")
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "itree"))
	viper.SetDefault("breadth_first", false)
	viper.SetDefault("log_level", "warn")

	// A missing config file is fine, defaults and env apply.
	_ = viper.ReadInConfig()
}

// NewLogger builds the stderr logger for the --log-level flag, falling back
// to the log_level setting.
func NewLogger() (*logrus.Logger, error) {
	level := logLevel
	if level == "" {
		level = viper.GetString("log_level")
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	return logger, nil
}

func InitService(logger logrus.FieldLogger) (*service.Service, error) {
	config := &service.Config{
		DataDir:      viper.GetString("data_dir"),
		File:         treeFile,
		BreadthFirst: viper.GetBool("breadth_first"),
		MaxDepth:     traverse.Unbounded,
		MaxDepthSet:  viper.IsSet("max_depth"),
	}
	if config.MaxDepthSet {
		config.MaxDepth = viper.GetInt("max_depth")
	}

	svc, err := service.New(config, logger)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"data_dir": config.DataDir,
		"file":     config.File,
	}).Debug("service initialized")
	return svc, nil
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&treeFile, "file", "f", "", "Read the tree from a YAML file instead of the store")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
