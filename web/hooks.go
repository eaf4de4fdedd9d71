package web

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/schedules"
	"github.com/pevans/newsscraper/scrapelog"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

// SiteHooks keeps schedules, articles and scrape logs consistent with
// website changes made through websites.APIServer.
type SiteHooks struct {
	Manager  *schedules.Manager
	Articles *articles.Store
	Logs     *scrapelog.Store
}

// WebsiteSaved keeps the website's schedule in line with its auto-scrape
// settings.
func (h *SiteHooks) WebsiteSaved(_ context.Context, w *websites.Website) error {
	return h.Manager.SyncWebsite(w)
}

// WebsiteDeleted removes the website's schedule, articles and scrape logs.
func (h *SiteHooks) WebsiteDeleted(_ context.Context, id uuid.UUID) error {
	var errs []error
	if err := h.Manager.RemoveWebsite(id); err != nil {
		errs = append(errs, err)
	}
	n, err := h.Articles.DeleteByWebsite(id)
	if err != nil {
		errs = append(errs, err)
	}
	if err := h.Logs.DeleteByWebsite(id); err != nil {
		errs = append(errs, err)
	}
	log.Info().Str("website_id", id.String()).Int64("articles", n).Msg("Removed website data")
	return errors.Join(errs...)
}
