package main

import (
	"github.com/sirupsen/logrus"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/api/bahn"
	"github.com/danpilch/railscout/internal/api/trainline"
	"github.com/danpilch/railscout/internal/browser"
	"github.com/danpilch/railscout/internal/config"
	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/station"
)

// buildSources creates an adapter for every enabled source.
func buildSources(cfg *config.Config, logger *logrus.Logger) []acquire.Source {
	var sources []acquire.Source
	for _, id := range cfg.EnabledSources() {
		sc := cfg.Sources[id]
		switch id {
		case config.SourceBahn, config.SourceBahnInt:
			flavor := bahn.Domestic
			if id == config.SourceBahnInt {
				flavor = bahn.International
			}
			if sc.BaseURL != "" {
				flavor.BaseURL = sc.BaseURL
			}
			sources = append(sources, bahn.NewClient(bahn.Options{
				Flavor:        flavor,
				UserAgent:     sc.UserAgent,
				Timeout:       sc.Timeout,
				RatePerSecond: sc.RatePerSecond,
				Logger:        logger,
			}))

		case config.SourceTrainline:
			sources = append(sources, trainline.NewClient(trainline.Options{
				BaseURL:       sc.BaseURL,
				UserAgent:     sc.UserAgent,
				Timeout:       sc.Timeout,
				RatePerSecond: sc.RatePerSecond,
				Logger:        logger,
			}))

		case config.SourceBahnExpert, config.SourceTrainlineWeb:
			site := browser.Sites()[id]
			if sc.BaseURL != "" {
				site.URL = sc.BaseURL
			}
			launcher := browser.NewChromeLauncher(browser.ChromeOptions{
				ExecPath:  sc.ChromePath,
				Headless:  sc.IsHeadless(),
				UserAgent: sc.UserAgent,
				Logger:    logger,
			})
			sources = append(sources, browser.NewAdapter(site, launcher, logger))

		default:
			logger.WithField("source", id).Warn("no adapter for source, skipping")
		}
	}
	return sources
}

// newStationDirectory extends the built-in stations with the configured ones.
func newStationDirectory(cfg *config.Config) *station.Directory {
	dir := station.NewDirectory()
	for _, st := range cfg.Stations {
		dir.Add(journey.Station{Name: st.Name, Refs: st.Refs})
		for _, alias := range st.Aliases {
			dir.Alias(alias, st.Name)
		}
	}
	return dir
}
