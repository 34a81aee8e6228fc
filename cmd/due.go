package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/session"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Show questions due for review",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		categories := a.graph.Categories()
		s := session.Build(categories, a.graph.Questions(), session.Selection{DueBy: time.Now()})
		if s.Empty() {
			fmt.Println("✅ No questions due today! Good job.")
			return
		}

		fmt.Printf("🔥 %d questions due:\n\n", s.Len())
		printQuestions(os.Stdout, s.Questions(), categoryPaths(categories))
	},
}

func init() {
	rootCmd.AddCommand(dueCmd)
}
