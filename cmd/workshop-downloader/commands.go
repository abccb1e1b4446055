package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsget/workshop-downloader/internal/auth"
	"github.com/wsget/workshop-downloader/internal/cache"
	"github.com/wsget/workshop-downloader/internal/config"
	"github.com/wsget/workshop-downloader/internal/download"
	"github.com/wsget/workshop-downloader/internal/loader"
	"github.com/wsget/workshop-downloader/internal/model"
	"github.com/wsget/workshop-downloader/internal/platform"
	"github.com/wsget/workshop-downloader/internal/steam"
	"github.com/wsget/workshop-downloader/internal/thumb"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "none"
)

// maxScanPages bounds how many listing pages the download command scans when
// looking up an item by its published file id.
const maxScanPages = 100

// app holds the wired-up core shared by all commands.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	cache  *cache.Cache
	client *steam.Client
}

func newApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(store, cache.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	client := steam.NewClient(cfg.APIKey)
	return &app{cfg: cfg, log: log, cache: c, client: client}, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("closing cache failed", "error", err)
	}
}

func newStore(cfg config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendLevelDB:
		return cache.NewLevelDBStore(filepath.Join(cfg.CacheDir, "leveldb"))
	default:
		return cache.NewFileStore(cfg.CacheDir)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "workshop-downloader",
		Short:         "Browse game catalogs and download workshop item files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	root.AddCommand(
		newGamesCmd(&cfgFile),
		newSearchCmd(&cfgFile),
		newWorkshopCmd(&cfgFile),
		newDownloadCmd(&cfgFile),
		newCacheCmd(&cfgFile),
		newLoginCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("workshop-downloader %s (commit: %s)\n", version, commit)
		},
	}
}

func newGamesCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List the game catalog",
		Long: `List the game catalog. The short popular list prints first; the
extended catalog follows when it differs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			task := loader.NewGamesTask(a.cache, a.client, a.log)
			task.Start()

			var prev int
			for evt := range task.Events() {
				if len(evt.Games) == prev {
					continue
				}
				prev = len(evt.Games)
				fmt.Printf("Games (%d):\n", len(evt.Games))
				printGames(evt.Games)
			}
			return nil
		},
	}
}

func newSearchCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the game catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			task := loader.NewSearchTask(a.cache, a.client, args[0], a.log)
			task.Start()

			for evt := range task.Events() {
				if len(evt.Games) == 0 {
					fmt.Printf("No games match %q\n", evt.Query)
					continue
				}
				fmt.Printf("Games matching %q:\n", evt.Query)
				printGames(evt.Games)
			}
			return nil
		},
	}
}

func newWorkshopCmd(cfgFile *string) *cobra.Command {
	var page int
	var perPage int
	var preloadThumbs bool

	cmd := &cobra.Command{
		Use:   "workshop <app-id>",
		Short: "List workshop items for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid app id %q", args[0])
			}

			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if perPage <= 0 {
				perPage = a.cfg.PageSize
			}

			game := a.client.AppInfo(appID)
			fmt.Printf("Workshop items for %s (page %d):\n", game.Name, page)

			task := loader.NewWorkshopTask(a.cache, a.client, appID, page, perPage, a.log)
			task.Start()

			var items []model.WorkshopItem
			for evt := range task.Events() {
				if evt.Err != nil {
					return evt.Err
				}
				if evt.Item != nil {
					printItem(*evt.Item)
				}
				if evt.Items != nil {
					items = evt.Items
				}
			}
			fmt.Printf("%d items\n", len(items))

			if preloadThumbs {
				if err := preloadThumbnails(a, items); err != nil {
					a.log.Warn("thumbnail preload failed", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "listing page")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "items per page (default from config)")
	cmd.Flags().BoolVar(&preloadThumbs, "preload-thumbs", false, "warm the thumbnail cache for listed items")
	return cmd
}

func preloadThumbnails(a *app, items []model.WorkshopItem) error {
	l, err := thumb.NewLoader(a.cfg.ImageCacheDir, a.log)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		if item.PreviewURL != "" {
			urls = append(urls, item.PreviewURL)
		}
	}
	l.Preload(urls)

	go func() {
		for res := range l.Results() {
			if res.Err != nil {
				a.log.Debug("thumbnail fetch failed", "url", res.URL, "error", res.Err)
			}
		}
	}()
	l.Close()

	stats := l.CacheStats()
	fmt.Printf("Thumbnail cache: %d files\n", stats.Files)
	return nil
}

func newDownloadCmd(cfgFile *string) *cobra.Command {
	var dir string
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "download <app-id> <file-id>...",
		Short: "Download workshop item files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid app id %q", args[0])
			}

			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if dir == "" {
				dir = a.cfg.DownloadDir
			}
			if maxConcurrent <= 0 {
				maxConcurrent = a.cfg.MaxConcurrentDownloads
			}
			if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
				return fmt.Errorf("preparing download dir: %w", err)
			}

			svc := download.NewService(a.client, maxConcurrent, a.log)

			accepted := 0
			for _, fileID := range args[1:] {
				item, err := findItem(a.client, appID, fileID, a.cfg.PageSize)
				if err != nil {
					return err
				}
				if svc.StartDownload(item, dir) {
					accepted++
				}
			}
			if accepted == 0 {
				return errors.New("no downloads started")
			}

			for evt := range svc.Events() {
				switch evt.Type {
				case download.EventQueued:
					fmt.Printf("queued   %s\n", filepath.Base(evt.Path))
				case download.EventStarted:
					fmt.Printf("started  %s\n", filepath.Base(evt.Path))
				case download.EventSpeed:
					fmt.Printf("         %s: %.0f KB/s\n", filepath.Base(evt.Path), evt.BytesPerSec/1024)
				case download.EventFinished:
					fmt.Printf("finished %s (%d bytes)\n", filepath.Base(evt.Path), evt.Downloaded)
				case download.EventFailed:
					fmt.Printf("failed   %s: %s\n", filepath.Base(evt.Path), evt.Err)
				case download.EventAllDone:
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "destination directory (default from config)")
	cmd.Flags().IntVar(&maxConcurrent, "max", 0, "concurrent download limit (default from config)")
	return cmd
}

// findItem scans listing pages for the item with the given published file id.
func findItem(client *steam.Client, appID int, fileID string, perPage int) (model.WorkshopItem, error) {
	for page := 1; page <= maxScanPages; page++ {
		items, err := client.WorkshopItems(appID, page, perPage)
		if err != nil {
			return model.WorkshopItem{}, err
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if item.PublishedFileID == fileID {
				return item, nil
			}
		}
	}
	return model.WorkshopItem{}, fmt.Errorf("item %s not found for app %d", fileID, appID)
}

func newCacheCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the data cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			stats := a.cache.GetStats()
			size := a.cache.GetSize()
			fmt.Printf("Entries:   %d (%d active, %d expired)\n", stats.TotalItems, stats.ActiveItems, stats.ExpiredItems)
			fmt.Printf("Disk size: %d bytes\n", size.DiskSizeBytes)
			fmt.Printf("Backend:   %s\n", a.cfg.CacheBackend)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			a.cache.Clear()
			fmt.Println("Cache cleared")
			return nil
		},
	})

	return cmd
}

func newLoginCmd(cfgFile *string) *cobra.Command {
	var username string
	var guardCode string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			if username == "" {
				return errors.New("--username is required")
			}
			password := os.Getenv("WSGET_PASSWORD")
			if password == "" {
				fmt.Print("Password: ")
				password, err = readPassword()
				if err != nil {
					return err
				}
			}

			mgr := auth.NewManager(a.cfg.SessionFile, a.cfg.RequireGuardCode, a.log)
			session, err := mgr.Login(auth.Credentials{
				Username:  username,
				Password:  password,
				GuardCode: guardCode,
			})
			if errors.Is(err, auth.ErrGuardCodeRequired) {
				return errors.New("guard code required, retry with --guard-code")
			}
			if err != nil {
				return err
			}

			fmt.Printf("Logged in as %s (session %s)\n", session.Username, session.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVar(&guardCode, "guard-code", "", "guard code, when required")
	return cmd
}

// readPassword reads a line from stdin. Terminal echo handling is left to the
// caller's environment; WSGET_PASSWORD avoids the prompt entirely.
func readPassword() (string, error) {
	var password string
	if _, err := fmt.Scanln(&password); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

func printGames(games []model.Game) {
	for _, g := range games {
		fmt.Printf("  %8d  %s\n", g.AppID, g.Name)
	}
}

func printItem(item model.WorkshopItem) {
	fmt.Printf("  %s  %-40s %10s  %s %s  %s subs\n",
		item.PublishedFileID,
		item.Title,
		item.FileSizeDisplay,
		item.CreatedDate,
		item.CreatedTime,
		item.SubscriptionsDisplay,
	)
}
