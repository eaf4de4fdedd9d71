package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/websites"
	"github.com/spf13/cobra"
)

func newWebsitesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "websites",
		Short: "Manage scraped websites",
	}
	cmd.AddCommand(
		newWebsitesListCmd(c),
		newWebsitesAddCmd(c),
		newWebsitesDeleteCmd(c),
	)
	return cmd
}

func newWebsitesListCmd(c *cli) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List websites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			var filter websites.Filter
			if activeOnly {
				filter.Active = &activeOnly
			}
			list, err := a.websites.List(filter)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No websites configured.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tACTIVE\tAUTO\tURL")
			for _, w := range list {
				auto := "-"
				if w.AutoScrape {
					auto = w.Interval().String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
					w.ID, truncate(w.Name, 40), w.Category, w.Active, auto, w.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active websites")
	return cmd
}

func newWebsitesAddCmd(c *cli) *cobra.Command {
	var (
		name, siteURL, category string
		sel                     websites.Request
		renderJS, autoScrape    bool
		interval                int
		method                  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a website",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			w := websites.New(name, siteURL)
			if category != "" {
				w.Category = category
			}
			w.RenderJS = renderJS
			w.AutoScrape = autoScrape
			w.SentimentMethod = method
			if interval > 0 {
				w.ScrapeInterval = interval
			} else if settings, err := a.settings.Get(); err == nil {
				w.ScrapeInterval = settings.DefaultScrapeInterval
			}
			w.Selectors = *sel.ToUpdate(w.Selectors).Selectors

			created, err := a.siteAPI.CreateWebsite(cmd.Context(), w)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created website: %s\n", created.ID)
			fmt.Fprintf(out, "  Name: %s\n", created.Name)
			fmt.Fprintf(out, "  URL: %s\n", created.URL)
			fmt.Fprintf(out, "  Category: %s\n", created.Category)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&name, "name", "", "website name")
	fl.StringVar(&siteURL, "url", "", "page listing the articles")
	fl.StringVar(&category, "category", "", "category for articles without one (default "+websites.DefaultCategory+")")
	sel.LinkSelector = fl.String("link-selector", "", "CSS selectors for article links")
	sel.TitleSelector = fl.String("title-selector", "", "CSS selectors for the title")
	sel.ContentSelector = fl.String("content-selector", "", "CSS selectors for the content")
	sel.DateSelector = fl.String("date-selector", "", "CSS selectors for the publication date")
	sel.CategorySelector = fl.String("category-selector", "", "CSS selectors for the category")
	sel.AuthorSelector = fl.String("author-selector", "", "CSS selectors for the author")
	fl.BoolVar(&renderJS, "render-js", false, "render pages with headless Chrome")
	fl.BoolVar(&autoScrape, "auto-scrape", false, "scrape on a schedule")
	fl.IntVar(&interval, "interval", 0, "schedule interval in seconds")
	fl.StringVar(&method, "sentiment", websites.SentimentKeyword, "sentiment method (keyword or openai)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newWebsitesDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <website-id>",
		Short: "Delete a website with its articles, logs and schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid website ID: %w", err)
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.siteAPI.DeleteWebsite(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted website: %s\n", id)
			return nil
		},
	}
}
