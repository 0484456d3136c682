package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentradar",
		Short:         "Collect, score and compare rental listings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(addCmd())
	root.AddCommand(listCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(settingsCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, false)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the HTTP server together with the feed scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, true)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func addCmd() *cobra.Command {
	var (
		roommates int
		rating    int
		group     string
		htmlFile  string
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Scrape a listing page and add it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			if url == "" && htmlFile == "" {
				return fmt.Errorf("a listing url or --html file is required")
			}
			return runAdd(url, htmlFile, roommates, rating, group)
		},
	}

	cmd.Flags().IntVar(&roommates, "roommates", 0, "number of occupants sharing the rent")
	cmd.Flags().IntVar(&rating, "rating", 0, "your overall rating, 1-10")
	cmd.Flags().StringVar(&group, "group", "", "group label")
	cmd.Flags().StringVar(&htmlFile, "html", "", "read a saved listing page instead of fetching the url")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		sortBy     string
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(sortBy, jsonOutput, limit)
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "score", "sort key")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "max listings to show (0 = all)")
	return cmd
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Recompute costs and scores for every listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore()
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		out    string
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write listings to an .xlsx or .csv file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(out, sortBy)
		},
	}

	cmd.Flags().StringVar(&out, "out", "listings.xlsx", "output file (.xlsx or .csv)")
	cmd.Flags().StringVar(&sortBy, "sort", "score", "sort key")
	return cmd
}

func settingsCmd() *cobra.Command {
	var (
		origin  string
		weights = map[string]*float64{}
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show scoring settings, or rescore with a new origin or weights",
		Long:  "Show scoring settings. Changes made with flags rescore the stored listings; put them in config.yaml to keep them for later runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]float64{}
			for name, v := range weights {
				if cmd.Flags().Changed(name) {
					changed[name] = *v
				}
			}
			return runSettings(origin, changed)
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "set the commute origin address and rescore")
	for _, name := range []string{"rent", "sqft", "bedrooms", "bathrooms", "distance"} {
		weights[name] = cmd.Flags().Float64(name, 0, "weight for "+name)
	}
	return cmd
}
