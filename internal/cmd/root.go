package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "phonix",
	Short: "Photo enhancement presets, previews and exports",
	Long: `Phonix enhances photos with a catalog of 3000 generated filter presets.

It adjusts brightness, contrast, saturation, blur, hue, sepia and warmth,
renders previews, exports full resolution JPEGs and keeps saved photos in a
local gallery. Use it from the command line or serve the HTTP API.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("data-dir", "./data", "Directory for the media gallery database")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PHONIX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func bindFlags(cmd *cobra.Command, section string, flags ...string) {
	for _, flag := range flags {
		key := section + "." + flagKey(flag)
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

func flagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// loadCatalog returns the seeded catalog, or the process default when seed is 0.
func loadCatalog(seed int64) *catalog.Catalog {
	if seed == 0 {
		return catalog.Default()
	}
	return catalog.New(seed)
}

func mediaDBPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(viper.GetString("data_dir"), "media.db")
}
