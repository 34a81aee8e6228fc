package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/ai"
	"github.com/hightemp/topic-trainer-ai/internal/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage categories and questions by talking to the assistant",
	Long: `Start an interactive chat with the Gemini assistant. It can create, edit,
list and delete categories and questions on your behalf. Type 'exit' to quit.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		agent, err := a.agent(cmd.Context())
		if err != nil {
			fmt.Println("❌ Gemini error:", err)
			return
		}
		if agent == nil {
			fmt.Println("❌ Chat needs a Gemini API key (set GEMINI_API_KEY or TOPIC_TRAINER_GEMINI_API_KEY).")
			return
		}

		fmt.Println("🤖 Ask me to organise your questions. Type 'exit' to quit.")
		var history []models.ChatMessage
		for {
			fmt.Print("\n> ")
			line, err := readLine(stdin)
			if err != nil || line == "exit" || line == "quit" {
				break
			}
			if line == "" {
				continue
			}

			reply, err := agent.Chat(cmd.Context(), history, line)
			printToolCalls(reply.ToolCalls)
			if err != nil {
				fmt.Println("❌", err)
				continue
			}
			fmt.Println("🤖", reply.Text)
			history = append(history,
				models.ChatMessage{Role: "user", Content: line},
				models.ChatMessage{Role: "model", Content: reply.Text},
			)
		}
	},
}

func printToolCalls(calls []ai.ToolCall) {
	for _, c := range calls {
		status := "ok"
		if e, ok := c.Result["error"].(map[string]any); ok {
			status = fmt.Sprintf("%v: %v", e["code"], e["message"])
		}
		var args []string
		for k, v := range c.Args {
			args = append(args, fmt.Sprintf("%s=%v", k, v))
		}
		fmt.Printf("🔧 %s(%s) → %s\n", c.Name, strings.Join(args, ", "), status)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
