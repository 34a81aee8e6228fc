package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	storeFlag   string
	dataDirFlag string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "topic-trainer",
	Short: "Spaced repetition trainer for questions organised by topic",
	Long: `Topic Trainer keeps a library of study questions in nested categories and
schedules reviews with the SM-2 algorithm. Answers are graded by Gemini when an
API key is configured, otherwise you rate yourself from 0 to 10.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Storage backend: sqlite, redis or memory")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding the SQLite database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
}
