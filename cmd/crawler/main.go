package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/config"
	"sitemap-crawler/pkg/crawler"
	"sitemap-crawler/pkg/fetch"
	"sitemap-crawler/pkg/process"
	"sitemap-crawler/pkg/render"
	"sitemap-crawler/pkg/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "config.yaml", "Path to YAML config file")
	siteFlag := flag.String("site", "", "Name of a single site from the config file")
	allFlag := flag.Bool("all", false, "Crawl every configured site")
	listFlag := flag.Bool("list", false, "List configured sites and exit")
	dryRunFlag := flag.Bool("dry-run", false, "Resolve and print URLs without fetching pages")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	log.Infof("Loading configuration from %s", *configFileFlag)
	appCfg, err := config.Load(*configFileFlag)
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		log.Fatalf("Config validation error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	if *listFlag {
		for _, site := range appCfg.Sites {
			fmt.Printf("%-24s %-12s %s\n", site.Name, site.Type, site.Source)
		}
		return
	}

	sites, err := selectSites(appCfg, *siteFlag, *allFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if tokErr := process.InitTokenizer(appCfg.Settings.TokenEncoding); tokErr != nil {
		log.Warnf("Tokenizer init failed, token counts disabled: %v", tokErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(appCfg.Settings.HTTP, log)
	fetcher := fetch.NewFetcher(client, appCfg.Settings.HTTP, appCfg.Settings.Retry, log)
	limiter := fetch.NewRateLimiter(appCfg.Settings.RateLimit, log)
	renderer := render.NewHTTPRenderer(fetcher, limiter, log)

	exitCode := 0
	var totals crawler.Summary
	crawled := 0
	for _, site := range sites {
		siteWarnings, siteErr := site.Validate()
		if siteErr != nil {
			log.Errorf("Site '%s' configuration error: %v", site.Name, siteErr)
			exitCode = 1
			continue
		}
		for _, w := range siteWarnings {
			log.Warnf("[%s] %s", site.Name, w)
		}

		summary, ran, err := runSite(ctx, appCfg, site, fetcher, limiter, renderer, log, *dryRunFlag)
		if err != nil {
			log.Errorf("Crawl of site '%s' failed: %v", site.Name, err)
			exitCode = 1
		}
		if ran {
			crawled++
			totals.URLsTotal += summary.URLsTotal
			totals.URLsSuccess += summary.URLsSuccess
			totals.URLsFailed += summary.URLsFailed
			totals.URLsSkipped += summary.URLsSkipped
			totals.BytesDownloaded += summary.BytesDownloaded
			totals.MBDownloaded += summary.MBDownloaded
			totals.DurationSeconds += summary.DurationSeconds
		}
		if ctx.Err() != nil {
			log.Warn("Interrupted, stopping remaining sites")
			break
		}
	}

	if crawled > 1 {
		fmt.Printf("\n[all sites] %d crawled: %d urls, %d ok, %d failed, %d skipped, %.2f MB in %.2fs\n",
			crawled, totals.URLsTotal, totals.URLsSuccess, totals.URLsFailed,
			totals.URLsSkipped, totals.MBDownloaded, totals.DurationSeconds)
	}
	os.Exit(exitCode)
}

// runSite runs one crawl (or dry-run) session for a single site. The bool
// reports whether a real crawl produced the summary.
func runSite(ctx context.Context, appCfg *config.AppConfig, site config.SiteConfig, fetcher *fetch.Fetcher, limiter *fetch.RateLimiter, renderer render.PageFetcher, log *logrus.Logger, dryRun bool) (crawler.Summary, bool, error) {
	outputDir := filepath.Join(appCfg.SiteBaseDir(site), site.OutputDir(time.Now()))
	store, err := storage.NewLocalStorage(outputDir, log.WithField("site", site.Name))
	if err != nil {
		return crawler.Summary{}, false, err
	}

	c := crawler.NewCrawler(appCfg, site, fetcher, limiter, renderer, store, log)

	if dryRun {
		urls, err := c.DryRun(ctx)
		if err != nil {
			return crawler.Summary{}, false, err
		}
		fmt.Printf("[%s] resolved %d URLs:\n", site.Name, len(urls))
		for _, u := range urls {
			fmt.Println("  " + u)
		}
		return crawler.Summary{}, false, nil
	}

	summary, err := c.Run(ctx)
	if err != nil {
		return summary, false, err
	}
	printSummary(site.Name, outputDir, summary)
	return summary, true, nil
}

// printSummary writes the human-facing run report to stdout.
func printSummary(siteName, outputDir string, s crawler.Summary) {
	fmt.Printf("\n[%s] crawl finished\n", siteName)
	fmt.Printf("  output:       %s\n", outputDir)
	fmt.Printf("  urls total:   %d\n", s.URLsTotal)
	fmt.Printf("  success:      %d\n", s.URLsSuccess)
	fmt.Printf("  failed:       %d\n", s.URLsFailed)
	fmt.Printf("  skipped:      %d\n", s.URLsSkipped)
	fmt.Printf("  downloaded:   %.2f MB\n", s.MBDownloaded)
	fmt.Printf("  duration:     %.2fs\n", s.DurationSeconds)
	fmt.Printf("  throughput:   %.2f urls/s, %.2f MB/s\n", s.URLsPerSecond, s.MBPerSecond)
	for category, count := range s.ErrorCounts {
		fmt.Printf("  error[%s]: %d\n", category, count)
	}
}

// selectSites picks the sites to crawl from the -site/-all flags.
func selectSites(appCfg *config.AppConfig, siteName string, all bool) ([]config.SiteConfig, error) {
	switch {
	case all:
		if len(appCfg.Sites) == 0 {
			return nil, fmt.Errorf("no sites configured")
		}
		return appCfg.Sites, nil
	case siteName != "":
		site, err := appCfg.SiteByName(siteName)
		if err != nil {
			return nil, err
		}
		return []config.SiteConfig{site}, nil
	default:
		return nil, fmt.Errorf("either -site or -all is required (use -list to see configured sites)")
	}
}
