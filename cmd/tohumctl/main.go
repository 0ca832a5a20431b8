package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag     string
	sessionFlag string
	rootCmd     = &cobra.Command{
		Use:   "tohumctl",
		Short: "CLI client for the Tohum assistant REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Assistant backend base URL")
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "cli-session", "Session ID")

	// chat subcommand
	chatCmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one chat message and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(apiFlag, sessionFlag, args[0], os.Stdout)
		},
	}
	rootCmd.AddCommand(chatCmd)

	// remember subcommand
	rememberCmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store a memory item directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			return runRemember(apiFlag, sessionFlag, args[0], tags, os.Stdout)
		},
	}
	rememberCmd.Flags().StringSliceP("tags", "t", nil, "Tags to attach")
	rootCmd.AddCommand(rememberCmd)

	// search subcommand
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Semantic search over stored memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			topk, _ := cmd.Flags().GetInt("topk")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			global, _ := cmd.Flags().GetBool("global")
			session := sessionFlag
			if global {
				session = ""
			}
			return runSearch(apiFlag, session, query, tags, topk, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Search query text (required)")
	searchCmd.Flags().IntP("topk", "k", 5, "Number of top results to return")
	searchCmd.Flags().StringSliceP("tags", "t", nil, "Require all of these tags")
	searchCmd.Flags().Bool("global", false, "Search across all sessions")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
