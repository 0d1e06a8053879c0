package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parksync",
		Short:         "Sync National Park Service parks, activities and amenities into SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(syncCmd())
	root.AddCommand(parksCmd())
	root.AddCommand(amenitiesCmd())
	root.AddCommand(serveCmd())

	return root
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch parks and amenities from the NPS API and load them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}
}

func parksCmd() *cobra.Command {
	var (
		jsonOutput bool
		state      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "parks",
		Short: "List synced parks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParks(state, limit, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&state, "state", "", "only parks in this state (e.g., WY)")
	cmd.Flags().IntVar(&limit, "limit", 100, "max parks to show")
	return cmd
}

func amenitiesCmd() *cobra.Command {
	var (
		jsonOutput bool
		park       string
	)

	cmd := &cobra.Command{
		Use:   "amenities",
		Short: "List synced amenities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAmenities(park, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&park, "park", "", "only amenities of this park code (e.g., yell)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start read-only HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
