package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pixelfin",
	Short: "An artwork inventory tool for Jellyfin libraries",
	Long: `Pixelfin connects to a Jellyfin server and inventories the artwork of a
media library. It generates a self-contained HTML gallery for reviewing
posters, backdrops, logos and the other image categories, and can pack
the same images into a zip archive with predictable file names.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
