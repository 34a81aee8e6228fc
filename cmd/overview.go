package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/stats"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show how the question library is progressing",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		b := stats.QuestionBreakdown(a.graph.Questions(), time.Now())

		fmt.Println("\n📊 Library Overview")
		fmt.Println("===================")
		fmt.Printf("Categories:       %d\n", len(a.graph.Categories()))
		fmt.Printf("Total Questions:  %d\n", b.Total)
		fmt.Printf("Due Now:          %d\n", b.Due)
		fmt.Printf("Learning (<%dd):   %d\n", stats.LearningInterval, b.Learning)
		fmt.Printf("Mastered (>%dd):  %d\n", stats.MasteredInterval, b.Mastered)
		fmt.Printf("In Progress:      %d\n", b.InProgress)

		fmt.Printf("\n📈 Questions by Difficulty (%d-%d)\n", models.MinDifficulty, models.MaxDifficulty)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Difficulty\tCount\t")
		fmt.Fprintln(w, "----------\t-----\t")
		for i := models.MinDifficulty; i <= models.MaxDifficulty; i++ {
			count := b.ByDifficulty[i]
			fmt.Fprintf(w, "%d\t%d\t%s\n", i, count, bar(count))
		}
		w.Flush()
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}
