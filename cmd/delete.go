package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forceDelete bool

var deleteCmd = &cobra.Command{
	Use:   "delete [question id]",
	Short: "Delete a question",
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

		if !forceDelete {
			if !confirm(stdin, fmt.Sprintf("⚠️  Are you sure you want to delete '%s'? (y/N): ", truncate(q.Text, 50))) {
				fmt.Println("❌ Cancelled.")
				return
			}
		}

		if err := a.graph.RemoveQuestion(cmd.Context(), q.ID); err != nil {
			fmt.Println("❌ Error deleting question:", err)
			return
		}

		fmt.Println("✅ Question deleted.")
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation")
}
