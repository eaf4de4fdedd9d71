package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/export"
	"github.com/spf13/cobra"
)

type exportFlags struct {
	format     string
	output     string
	limit      int
	websiteID  string
	category   string
	sentiment  string
	search     string
	bookmarked bool
}

func newExportCmd(c *cli) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export articles as CSV, JSON, PDF or Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(f.format)
			if err != nil {
				return err
			}
			filter, err := f.filter()
			if err != nil {
				return err
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			limit := f.limit
			if limit <= 0 || limit > c.cfg.Export.MaxRecords {
				limit = c.cfg.Export.MaxRecords
			}
			items, err := a.articles.All(filter, limit)
			if err != nil {
				return err
			}

			now := time.Now()
			if f.output == "-" {
				return export.Write(cmd.OutOrStdout(), format, items, now)
			}
			if f.output != "" {
				return writeExportFile(f.output, format, items, now)
			}

			path, err := export.SaveFile(c.cfg.Export.Folder, format, items, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d articles to %s\n", len(items), path)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", string(export.CSV),
		"export format ("+strings.Join(formatNames(), ", ")+")")
	fl.StringVarP(&f.output, "output", "o", "", "output file, or - for stdout (default a timestamped file in EXPORT_FOLDER)")
	fl.IntVar(&f.limit, "limit", 0, "maximum number of articles (default MAX_EXPORT_RECORDS)")
	fl.StringVar(&f.websiteID, "website", "", "only articles from this website ID")
	fl.StringVar(&f.category, "category", "", "only articles in this category")
	fl.StringVar(&f.sentiment, "sentiment", "", "only articles with this sentiment")
	fl.StringVar(&f.search, "search", "", "only articles whose title or content contains this text")
	fl.BoolVar(&f.bookmarked, "bookmarked", false, "only bookmarked articles")
	return cmd
}

func (f exportFlags) filter() (articles.Filter, error) {
	filter := articles.Filter{
		Category:  f.category,
		Sentiment: f.sentiment,
		Search:    f.search,
	}
	if f.websiteID != "" {
		id, err := uuid.Parse(f.websiteID)
		if err != nil {
			return filter, fmt.Errorf("invalid website ID: %w", err)
		}
		filter.WebsiteID = &id
	}
	if f.bookmarked {
		filter.Bookmarked = &f.bookmarked
	}
	return filter, nil
}

func writeExportFile(path string, format export.Format, items []articles.Article, now time.Time) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return export.Write(file, format, items, now)
}

func formatNames() []string {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	return names
}
