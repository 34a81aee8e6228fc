package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

var (
	addAnswer     string
	addDifficulty int
	addTags       string
)

var addCmd = &cobra.Command{
	Use:   "add [category id] [question text]",
	Short: "Add a new question to a category",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if strings.TrimSpace(addAnswer) == "" {
			fmt.Println("❌ --answer is required")
			return
		}

		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		q, err := a.graph.AddQuestion(cmd.Context(), models.Question{
			Text:          strings.Join(args[1:], " "),
			CorrectAnswer: addAnswer,
			Difficulty:    addDifficulty,
			Tags:          parseTags(addTags),
			CategoryID:    args[0],
		})
		if err != nil {
			fmt.Println("❌ Error adding question:", err)
			return
		}

		fmt.Printf("✅ Added question %s (Next review: %s)\n", q.ID, q.NextReview.Format("2006-01-02"))
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addAnswer, "answer", "a", "", "Reference answer")
	addCmd.Flags().IntVarP(&addDifficulty, "difficulty", "d", 3, "Difficulty (1-5)")
	addCmd.Flags().StringVarP(&addTags, "tags", "t", "", "Comma-separated tags (e.g. sql,joins)")
}
