package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	editText       string
	editAnswer     string
	editCategory   string
	editTags       string
	editDifficulty int
)

var editCmd = &cobra.Command{
	Use:   "edit [question id]",
	Short: "Edit a question",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		q, err := a.graph.Question(args[0])
		if err != nil {
			fmt.Println("❌", err)
			return
		}

		flags := cmd.Flags()
		if flags.Changed("text") {
			q.Text = editText
		}
		if flags.Changed("answer") {
			q.CorrectAnswer = editAnswer
		}
		if flags.Changed("category") {
			q.CategoryID = editCategory
		}
		if flags.Changed("difficulty") {
			q.Difficulty = editDifficulty
		}
		if flags.Changed("tags") {
			q.Tags = parseTags(editTags)
		}

		if _, err := a.graph.UpdateQuestion(cmd.Context(), q); err != nil {
			fmt.Println("❌ Error updating question:", err)
			return
		}

		fmt.Println("✅ Question updated successfully!")
	},
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editText, "text", "", "New question text")
	editCmd.Flags().StringVar(&editAnswer, "answer", "", "New reference answer")
	editCmd.Flags().StringVar(&editCategory, "category", "", "Move to this category ID")
	editCmd.Flags().IntVar(&editDifficulty, "difficulty", 0, "New difficulty (1-5)")
	editCmd.Flags().StringVar(&editTags, "tags", "", "Comma-separated tags (replaces existing)")
}
