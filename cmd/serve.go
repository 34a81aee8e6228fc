package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hightemp/topic-trainer-ai/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp(cmd)
		if a == nil {
			return
		}
		defer a.Close()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps := server.Deps{
			Graph:    a.graph,
			Tools:    a.tools,
			Attempts: a.attempts,
		}
		eval, err := a.evaluator(ctx, nil)
		if err != nil {
			fmt.Println("❌ Gemini error:", err)
			return
		}
		deps.Review = a.reviewer(eval)
		agent, err := a.agent(ctx)
		if err != nil {
			fmt.Println("❌ Gemini error:", err)
			return
		}
		if agent != nil {
			deps.Agent = agent
		} else {
			a.log.Warn("GEMINI_API_KEY not set, answers must carry a score and chat is disabled")
		}

		port := a.cfg.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		srv := server.New(deps, server.Options{
			CORSOrigins: a.cfg.CORSOrigins,
			WindowDays:  a.cfg.StatsWindowDays,
		}, a.log)

		fmt.Printf("🚀 Listening on :%d\n", port)
		if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil {
			fmt.Println("❌ Server error:", err)
			return
		}
		fmt.Println("👋 Server stopped.")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
}
