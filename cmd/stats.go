package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/stats"
)

var statsWindow int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review statistics",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		window := a.cfg.StatsWindowDays
		if cmd.Flags().Changed("window") {
			window = statsWindow
		}
		if window < 1 {
			fmt.Println("❌ --window must be positive")
			return
		}
		rep, err := stats.NewAggregator(a.graph, a.attempts).Report(cmd.Context(), window, time.Now())
		if err != nil {
			fmt.Println("❌ Error computing stats:", err)
			return
		}

		fmt.Println("📊 Statistics")
		fmt.Println("-------------")
		fmt.Printf("Total Attempts:  %d\n", rep.Summary.TotalAttempts)
		fmt.Printf("Last 7 Days:     %d\n", rep.ReviewsLast7Days)
		fmt.Printf("Average Score:   %.2f\n", rep.Summary.AverageScore)
		fmt.Printf("Success Rate:    %.0f%%\n", rep.Summary.SuccessRate*100)
		fmt.Printf("Study Time:      %s\n", (time.Duration(rep.Summary.TotalStudyTime) * time.Second).String())

		if len(rep.Categories) > 0 {
			fmt.Println("\n🗂️  By Category")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Category\tAttempts\tAvg Score")
			fmt.Fprintln(w, "--------\t--------\t---------")
			for _, c := range rep.Categories {
				fmt.Fprintf(w, "%s\t%d\t%.2f\n", c.Name, c.Count, c.AverageScore)
			}
			w.Flush()
		}

		if len(rep.Daily) > 0 {
			fmt.Printf("\n📈 Daily Progress (last %d days)\n", window)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Day\tCount\tAvg\t")
			fmt.Fprintln(w, "---\t-----\t---\t")
			for _, d := range rep.Daily {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%s\n", d.Day.Format("2006-01-02"), d.Count, d.AverageScore, bar(d.Count))
			}
			w.Flush()
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVarP(&statsWindow, "window", "w", 30, "Days of daily progress to show (at most 30 rows)")
}
