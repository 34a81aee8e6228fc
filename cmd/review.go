package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/session"
)

var (
	reviewCategories []string
	reviewTags       []string
	reviewAll        bool
	reviewLimit      int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Start a review session",
	Long: `Start a review session over the questions due today.
Narrow it with --category (includes subcategories) and --tag, or pass --all
to practise questions that are not due yet. Press Ctrl-C while an answer is
being graded to cancel it without recording anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		eval, err := a.evaluator(ctx, selfRating(stdin))
		if err != nil {
			fmt.Println("❌ Gemini error:", err)
			return
		}
		svc := a.reviewer(eval)
		graded := a.cfg.HasGemini()

		for _, id := range reviewCategories {
			if _, err := a.graph.Category(id); err != nil {
				fmt.Println("❌", err)
				return
			}
		}
		sel := session.Selection{CategoryIDs: reviewCategories, Tags: reviewTags}
		if !reviewAll {
			sel.DueBy = time.Now()
		}
		categories := a.graph.Categories()
		s := session.Build(categories, a.graph.Questions(), sel)
		if s.Empty() {
			fmt.Println("✅ No questions due for review!")
			return
		}
		paths := categoryPaths(categories)

		total := s.Len()
		if reviewLimit > 0 && reviewLimit < total {
			total = reviewLimit
		}
		if graded {
			fmt.Printf("🤖 Answers are graded by %s.\n", a.cfg.GeminiModel)
		} else {
			fmt.Println("📝 No Gemini API key configured: you will rate your own answers.")
		}

		reviewed := 0
		for i := 0; i < total; i++ {
			q, _ := s.Next()
			fmt.Println("\n========================================")
			fmt.Printf("Question [%d/%d]  %s  (difficulty %d)\n", i+1, total, paths[q.CategoryID], q.Difficulty)
			fmt.Println("========================================")
			fmt.Println(q.Text)
			fmt.Print("\nYour answer (empty to skip, 'q' to quit): ")

			start := time.Now()
			answer, err := readLine(stdin)
			if err != nil || answer == "q" {
				break
			}
			if answer == "" {
				fmt.Println("⏭️  Skipped.")
				continue
			}
			duration := int(time.Since(start).Seconds())

			if graded {
				fmt.Println("⏳ Grading...")
			}
			evalCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			res, err := svc.Answer(evalCtx, q.ID, answer, duration)
			interrupted := evalCtx.Err() != nil
			stop()

			if err != nil {
				fmt.Println("❌ Error:", err)
				if res.Attempt.ID != "" {
					fmt.Println("⚠️  The attempt was recorded but the question was not rescheduled.")
				}
				continue
			}
			if res.Cancelled {
				fmt.Println("⚠️  Grading cancelled, nothing was recorded.")
				if interrupted {
					break
				}
				continue
			}

			reviewed++
			fmt.Printf("\n🎯 Score: %.1f/10\n", res.Evaluation.Score)
			if graded {
				if res.Evaluation.Feedback != "" {
					fmt.Printf("💬 %s\n", res.Evaluation.Feedback)
				}
				fmt.Printf("📖 Reference answer: %s\n", q.CorrectAnswer)
			}
			fmt.Printf("✅ Next review in %d days (%s).\n", res.Question.Interval, res.Question.NextReview.Format(time.DateOnly))
		}

		fmt.Printf("\n🎉 Review session complete! %d questions reviewed.\n", reviewed)
	},
}

// selfRating shows the reference answer and asks the learner for a 0-10
// score. An empty line cancels.
func selfRating(r *bufio.Reader) ai.Evaluator {
	return ai.EvaluatorFunc(func(ctx context.Context, questionText, correctAnswer, userAnswer string) (models.Evaluation, error) {
		fmt.Printf("\n📖 Reference answer:\n%s\n\n", correctAnswer)
		for {
			if ctx.Err() != nil {
				return models.Evaluation{}, models.ErrEvaluationCancelled
			}
			fmt.Print("Rate your answer (0: Blackout -> 10: Perfect, empty to cancel): ")
			input, err := readLine(r)
			if err != nil || input == "" {
				return models.Evaluation{}, models.ErrEvaluationCancelled
			}
			score, err := strconv.ParseFloat(input, 64)
			if err != nil || models.ValidateScore(score) != nil {
				fmt.Println("⚠️  Enter a number between 0 and 10.")
				continue
			}
			return models.Evaluation{Score: score, Feedback: "Self-rated"}, nil
		}
	})
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().StringSliceVarP(&reviewCategories, "category", "c", nil, "Category IDs (includes subcategories)")
	reviewCmd.Flags().StringSliceVarP(&reviewTags, "tag", "t", nil, "Tags (any match)")
	reviewCmd.Flags().BoolVarP(&reviewAll, "all", "a", false, "Include questions that are not due yet")
	reviewCmd.Flags().IntVarP(&reviewLimit, "limit", "n", 0, "Stop after this many questions (0 = no limit)")
}
