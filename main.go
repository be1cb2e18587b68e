package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var CLI struct {
	Config string `help:"Configuration file path" default:"conf/config.json"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Serve struct {
		Addr string `help:"Listen address, overrides the config file"`
	} `cmd:"" help:"Serve themed imagery over HTTP."`

	Theme struct {
		Path    string `arg:"" help:"Page URL path"`
		Content string `help:"Page text content used when the path has no theme"`
	} `cmd:"" help:"Print the theme resolved for a page."`

	Render struct {
		Category string   `arg:"" help:"Content category"`
		Theme    string   `help:"Theme name" default:"homepage"`
		Layout   string   `help:"Layout: single, grid, slider or masonry" default:"single"`
		Keywords []string `help:"Search keywords, most specific first" short:"k"`
		Json     bool     `help:"Print the rendering structure instead of HTML"`
	} `cmd:"" help:"Fetch imagery for one category and print it."`

	Useradd struct {
		User     string `arg:"" help:"User name"`
		Password string `help:"Password" env:"IMAGERY_USER_PASSWORD" required:""`
		Level    int    `help:"Access level" default:"1"`
	} `cmd:"" help:"Add a user allowed to read /stats."`
}

func processError(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	os.Exit(2)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("imagery"),
		kong.Description("Themed stock imagery for the marketing site."),
	)

	cfg, err := LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if CLI.Debug {
		cfg.Log.Level = "debug"
		cfg.Debug.PrettyJson = true
	}
	log, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	switch ctx.Command() {
	case "serve":
		if CLI.Serve.Addr != "" {
			cfg.Server.Addr = CLI.Serve.Addr
		}
		if err := serve(cfg, log); err != nil {
			processError(log, "Server failed", err)
		}

	case "theme <path>":
		fmt.Println(ResolveTheme(PageContext{Path: CLI.Theme.Path, Content: CLI.Theme.Content}))

	case "render <category>":
		if err := renderCategory(cfg, log); err != nil {
			processError(log, "Render failed", err)
		}

	case "useradd <user>":
		store, err := NewStore(cfg.Database, log)
		if err != nil {
			processError(log, "Unable to open store", err)
		}
		defer store.Close()
		if err := store.AddUser(CLI.Useradd.User, CLI.Useradd.Password, CLI.Useradd.Level); err != nil {
			processError(log, "Unable to add user", err)
		}
		log.Info("User added", zap.String("user", CLI.Useradd.User))

	default:
		processError(log, "Unknown command", errors.New(ctx.Command()))
	}
}

// buildSearchers enables every source that has a key configured.
func buildSearchers(cfg *Config, reqCache *ReqCache, log *zap.Logger) []ImageSearcher {
	newDeps := func() ApiDeps {
		return ApiDeps{
			Client:  &http.Client{Timeout: 30 * time.Second},
			Cache:   reqCache,
			Limiter: rate.NewLimiter(rate.Limit(cfg.Imagery.RequestsPerSecond), max(1, int(cfg.Imagery.RequestsPerSecond))),
			Log:     log,
		}
	}

	var apis []ImageSearcher
	if cfg.Pixabay.Key != "" {
		apis = append(apis, NewPixabayApi(cfg.Pixabay.Key, newDeps()))
	}
	if cfg.Pexels.Key != "" {
		apis = append(apis, NewPexelsApi(cfg.Pexels.Key, newDeps()))
	}
	if cfg.Unsplash.AccessKey != "" {
		apis = append(apis, NewUnsplashApi(cfg.Unsplash.AccessKey, newDeps()))
	}
	if len(apis) == 0 {
		log.Warn("No image sources configured; every container will render its placeholder")
	}
	return apis
}

func openImagery(cfg *Config, log *zap.Logger) (*Imagery, *Store, *ReqCache, error) {
	store, err := NewStore(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	reqCache := NewReqCache(store, log)
	imagery := NewImagery(buildSearchers(cfg, reqCache, log),
		WithSettings(cfg.Settings()),
		WithLogger(log),
	)
	return imagery, store, reqCache, nil
}

func serve(cfg *Config, log *zap.Logger) error {
	imagery, store, reqCache, err := openImagery(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reqCache.PurgeExpired(ctx, time.Hour)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewServer(imagery, store, log, cfg.Debug.PrettyJson),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting Server", zap.String("addr", cfg.Server.Addr), zap.Strings("sources", imagery.Stats().Sources))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func renderCategory(cfg *Config, log *zap.Logger) error {
	imagery, store, _, err := openImagery(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	theme := ThemeFor(CLI.Render.Theme).Name
	keywords := CLI.Render.Keywords
	if len(keywords) == 0 {
		keywords = CategoryKeywords(theme, CLI.Render.Category)
	}

	images := imagery.LoadCategoryImages(context.Background(), theme, CLI.Render.Category, keywords)
	rendering := Render(images, ParseLayout(CLI.Render.Layout), CLI.Render.Category)
	if CLI.Render.Json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rendering)
	}
	return RenderHTML(os.Stdout, rendering)
}
