package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/session"
)

var (
	listCategories []string
	listTags       []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions, optionally filtered by category subtree or tag",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		for _, id := range listCategories {
			if _, err := a.graph.Category(id); err != nil {
				fmt.Println("❌", err)
				return
			}
		}

		categories := a.graph.Categories()
		s := session.Build(categories, a.graph.Questions(), session.Selection{
			CategoryIDs: listCategories,
			Tags:        listTags,
		})
		if s.Empty() {
			fmt.Println("📭 No questions found.")
			return
		}

		fmt.Printf("📚 %d questions:\n\n", s.Len())
		printQuestions(os.Stdout, s.Questions(), categoryPaths(categories))
	},
}

func printQuestions(out io.Writer, questions []models.Question, paths map[string]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQuestion\tDiff\tNext Review\tCategory\tTags")
	fmt.Fprintln(w, "--\t--------\t----\t-----------\t--------\t----")

	for _, q := range questions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			q.ID, truncate(q.Text, 50), q.Difficulty, q.NextReview.Format(time.DateOnly),
			paths[q.CategoryID], strings.Join(q.Tags, ", "))
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringSliceVarP(&listCategories, "category", "c", nil, "Category IDs (includes subcategories)")
	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "Tags (any match)")
}
