package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/graph"
	"github.com/hightemp/topic-trainer-ai/internal/models"
)

var (
	categoryParent string
	categoryForce  bool
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"cat"},
	Short:   "Manage the category tree",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a category",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		c, err := a.graph.AddCategory(cmd.Context(), strings.Join(args, " "), categoryParent)
		if err != nil {
			fmt.Println("❌ Error adding category:", err)
			return
		}
		fmt.Printf("✅ Added category '%s' (ID: %s)\n", c.Name, c.ID)
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename [id] [new name]",
	Short: "Rename a category",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		c, err := a.graph.RenameCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			fmt.Println("❌ Error renaming category:", err)
			return
		}
		fmt.Printf("✅ Renamed to '%s'\n", c.Name)
	},
}

var categoryMoveCmd = &cobra.Command{
	Use:   "move [id] [new parent id]",
	Short: "Move a category under another one (omit the parent to make it a root)",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		parent := ""
		if len(args) == 2 {
			parent = args[1]
		}
		c, err := a.graph.MoveCategory(cmd.Context(), args[0], parent)
		if err != nil {
			fmt.Println("❌ Error moving category:", err)
			return
		}
		if c.ParentID == "" {
			fmt.Printf("✅ '%s' is now a top-level category\n", c.Name)
			return
		}
		fmt.Printf("✅ Moved '%s' under %s\n", c.Name, c.ParentID)
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a category with all its subcategories and questions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		id := args[0]
		c, err := a.graph.Category(id)
		if err != nil {
			fmt.Println("❌", err)
			return
		}
		plan, err := a.graph.RemovalPlan(id)
		if err != nil {
			fmt.Println("❌", err)
			return
		}

		if !categoryForce {
			prompt := fmt.Sprintf("⚠️  Delete '%s' with %d subcategories and %d questions? (y/N): ",
				c.Name, len(plan.CategoryIDs)-1, len(plan.QuestionIDs))
			if !confirm(stdin, prompt) {
				fmt.Println("❌ Cancelled.")
				return
			}
		}

		removed, err := a.graph.RemoveCategory(cmd.Context(), id)
		if err != nil {
			fmt.Println("❌ Error deleting category:", err)
			return
		}
		fmt.Printf("✅ Deleted %d categories and %d questions.\n", len(removed.CategoryIDs), len(removed.QuestionIDs))
	},
}

var categoryTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the category tree",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		roots := a.graph.CategoryTree()
		if len(roots) == 0 {
			fmt.Println("📭 No categories yet. Add one with 'topic-trainer category add <name>'.")
			return
		}

		counts := make(map[string]int)
		for _, q := range a.graph.Questions() {
			counts[q.CategoryID]++
		}
		fmt.Println("🌳 Categories")
		graph.Walk(roots, func(n *models.CategoryNode, depth int) {
			fmt.Printf("%s%s (%d)  [%s]\n", strings.Repeat("  ", depth), n.Name, counts[n.ID], n.ID)
		})
	},
}

func init() {
	rootCmd.AddCommand(categoryCmd)
	categoryCmd.AddCommand(categoryAddCmd, categoryRenameCmd, categoryMoveCmd, categoryDeleteCmd, categoryTreeCmd)

	categoryAddCmd.Flags().StringVarP(&categoryParent, "parent", "p", "", "Parent category ID")
	categoryDeleteCmd.Flags().BoolVarP(&categoryForce, "force", "f", false, "Skip confirmation")
}
