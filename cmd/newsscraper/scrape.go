package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/discovery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newScrapeCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "scrape [website-id]",
		Short: "Scrape one website, or every active website with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all does not take a website ID")
			}
			if !all && len(args) != 1 {
				return errors.New("a website ID or --all is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				return scrapeAll(cmd, a)
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid website ID: %w", err)
			}
			res, err := a.engine.Scrape(cmd.Context(), id)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			if !res.Success {
				return errors.New("scrape failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "scrape every active website")
	return cmd
}

func scrapeAll(cmd *cobra.Command, a *app) error {
	active, err := a.websites.Count(true)
	if err != nil {
		return err
	}
	if active == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No active websites.")
		return nil
	}

	bar := progressbar.NewOptions(active,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Scraping"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	a.engine.OnProgress(func(res *discovery.Result) {
		bar.Describe(res.WebsiteName)
		_ = bar.Add(1)
	})

	summary := a.engine.ScrapeAll(cmd.Context())
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	for _, res := range summary.Results {
		printResult(cmd, res)
	}
	fmt.Fprintf(out, "Scraped %d articles from %d websites\n", summary.TotalArticles, summary.WebsitesScraped)
	if len(summary.Errors) > 0 {
		fmt.Fprintf(out, "%d errors occurred:\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
	return nil
}

func printResult(cmd *cobra.Command, res *discovery.Result) {
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-6s %3d new  %3d duplicate  %3d failed  %s\n",
		truncate(res.WebsiteName, 30), status, res.ArticlesScraped, res.Duplicates, res.Failed,
		res.Duration.Round(time.Millisecond))
	for _, e := range res.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
