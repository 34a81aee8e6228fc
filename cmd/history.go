package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [question id]",
	Short: "Show every recorded attempt for a question",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		id := args[0]
		list, err := a.attempts.ByQuestion(cmd.Context(), id)
		if err != nil {
			fmt.Println("❌ Error fetching attempts:", err)
			return
		}
		q, err := a.graph.Question(id)
		switch {
		case err == nil:
			fmt.Printf("🕘 %s\n", truncate(q.Text, 70))
			fmt.Printf("Interval: %d days | Ease: %.2f | Next review: %s\n\n",
				q.Interval, q.EaseFactor, q.NextReview.Format("2006-01-02"))
		case len(list) > 0:
			fmt.Printf("🗑️  Question %s was deleted. Its attempts are kept.\n\n", id)
		default:
			fmt.Println("❌", err)
			return
		}
		if len(list) == 0 {
			fmt.Println("No attempts yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Date\tScore\tTime\tAnswer\tFeedback")
		fmt.Fprintln(w, "----\t-----\t----\t------\t--------")
		for _, at := range list {
			fmt.Fprintf(w, "%s\t%.1f\t%ds\t%s\t%s\n",
				at.Date.Local().Format("2006-01-02 15:04"), at.AIScore, at.Duration,
				truncate(at.UserAnswer, 30), truncate(at.AIFeedback, 40))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
