package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubkit/internal/downloader"
	"clubkit/pkg/auth"
	"clubkit/pkg/browser"
	"clubkit/pkg/config"
	"clubkit/pkg/crawler"
	"clubkit/pkg/logger"
	"clubkit/pkg/report"
	"clubkit/pkg/siteclient"
	"clubkit/pkg/storage"
	"clubkit/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Crawl command flags
	outputDir   string
	concurrent  int
	policy      string
	headless    bool
	accountName string
	loadTimeout time.Duration
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the directory and download every club's kit images",
	Long: `Sign in, select 100 rows per page and walk the club kit directory until the
last page, downloading each club's kit images as it goes.

A login is required. It is taken from, in order:
  - a stored account named with --account
  - CLUBKIT_USERNAME / CLUBKIT_PASSWORD or the config file
  - the first account stored with 'clubkit auth login'

Clubs that appear on more than one page are downloaded once. Press Ctrl+C to
stop; files already written are kept and a partial report is saved.`,
	Example: `  # Crawl with defaults into $TMPDIR/kit
  clubkit crawl

  # Save somewhere else with more parallel downloads
  clubkit crawl --output ./kit --concurrent 8

  # Watch the browser and stop when the highest page label is reached
  clubkit crawl --headless=false --policy max-page

  # Use a stored account
  clubkit crawl --account rider@example.com`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	// the root command crawls too, so it takes the same flags
	for _, c := range []*cobra.Command{rootCmd, crawlCmd} {
		f := c.Flags()
		f.StringVarP(&outputDir, "output", "o", "", "output directory (default: $TMPDIR/kit)")
		f.IntVar(&concurrent, "concurrent", 4, "number of concurrent downloads per page")
		f.StringVar(&policy, "policy", config.PolicyNextDisabled, "completion policy: next-disabled, max-page or markup-unchanged")
		f.BoolVar(&headless, "headless", true, "run the browser without a window")
		f.StringVarP(&accountName, "account", "a", "", "use a stored account")
		f.DurationVar(&loadTimeout, "load-timeout", 30*time.Second, "how long to wait for a results page to load")
	}
}

// crawlFlags returns only the flags the user set, so config and environment
// values are not overridden by flag defaults
func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()
	if f.Changed("output") {
		flags["output"] = outputDir
	}
	if f.Changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if f.Changed("policy") {
		flags["policy"] = policy
	}
	if f.Changed("headless") {
		flags["headless"] = headless
	}
	if f.Changed("load-timeout") {
		flags["load-timeout"] = loadTimeout
	}
	if f.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, crawlFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		return err
	}
	log := logger.GetLogger()

	ui.PrintBanner(version)

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential store unavailable; using config and environment only")
		manager = auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}
	if err := applyAccount(cfg, manager, accountName); err != nil {
		ui.PrintError("No directory login found", err.Error())
		auth.WriteCredentialHelp(os.Stderr)
		return err
	}

	ui.PrintInfo("Directory", cfg.Site.DirectoryURL)
	ui.PrintInfo("Account", cfg.Credentials.Username)
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)
	ui.PrintInfo("Completion policy", cfg.Site.CompletionPolicy)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := crawl(ctx, cfg, log)
	if rep != nil {
		ui.PrintSummary(rep)
		if notify {
			ui.NewNotifier().NotifyCrawlFinished(rep)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Crawl interrupted")
		}
		return err
	}
	return nil
}

// credentialResolver picks the login for a crawl
type credentialResolver interface {
	Resolve(account, username, password string) (*auth.Account, error)
}

// applyAccount fills cfg.Credentials from the credential store
func applyAccount(cfg *config.Config, resolver credentialResolver, account string) error {
	acc, err := resolver.Resolve(account, cfg.Credentials.Username, cfg.Credentials.Password)
	if err != nil {
		return err
	}
	cfg.Credentials.Username = acc.Username
	cfg.Credentials.Password = acc.Password
	return cfg.ValidateCredentials()
}

// crawl wires the browser, site client, storage and downloader into a
// crawler and runs it. The report is saved even when the crawl fails.
func crawl(ctx context.Context, cfg *config.Config, log logger.Logger) (*report.Report, error) {
	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	client := siteclient.New(siteclient.Options{
		Timeout:   cfg.Download.DownloadTimeout,
		UserAgent: cfg.Download.UserAgent,
		Logger:    log,
	})

	var manifests downloader.ManifestWriter
	if cfg.Output.WriteManifest {
		manifests = store
	}
	kits := downloader.New(client, store, downloader.Options{
		Workers:   cfg.Download.ConcurrentDownloads,
		Manifests: manifests,
		Logger:    log,
	})

	session, err := browser.NewSession(ctx, browser.Options{
		Headless:  cfg.Site.Headless,
		UserAgent: cfg.Download.UserAgent,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	tracker := ui.NewStatusTracker()
	c, err := crawler.New(crawler.Options{
		Config:     cfg,
		Page:       session,
		Client:     client,
		Downloader: kits,
		Logger:     log,
		OnPage:     tracker.OnPage,
	})
	if err != nil {
		return nil, err
	}

	rep, runErr := c.Run(ctx)

	if cfg.Output.WriteReport {
		w := report.NewWriter(store.OutputDir(), log)
		if err := w.Save(rep); err != nil {
			log.WithError(err).Warn("Failed to save crawl report")
		} else {
			ui.PrintInfo("Report", w.Path())
		}
	}

	log.InfoWithFields("Crawl finished", map[string]interface{}{
		"files_saved": store.SavedCount(),
		"duration":    rep.Duration().String(),
	})
	return rep, runErr
}
