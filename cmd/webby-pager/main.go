package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/api"
	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/devserver"
	"github.com/justyntemme/webby-pager/internal/localbook"
	"github.com/justyntemme/webby-pager/internal/ui"
	"github.com/justyntemme/webby-pager/internal/ui/views"
	"github.com/justyntemme/webby-pager/pkg/models"
)

func main() {
	// Define flags
	serverURL := flag.String("url", "", "Server URL (e.g., http://myserver:8080)")
	flag.StringVar(serverURL, "s", "", "Server URL (shorthand)")
	bookID := flag.String("book", "", "Open a server book by ID")
	flag.StringVar(bookID, "b", "", "Open a server book by ID (shorthand)")
	file := flag.String("file", "", "Read a local .txt, .md, .epub or .cbz file")
	flag.StringVar(file, "f", "", "Read a local file (shorthand)")
	serve := flag.String("serve", "", "Serve the given book files on this address (e.g., :8080)")
	token := flag.String("token", "", "Bearer token required by -serve")
	logFile := flag.String("log", "", "Write a debug log to this file")
	mode := flag.String("mode", "", "Read mode: scroll, curl or collection")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.BoolVar(showHelp, "h", false, "Show help (shorthand)")
	debug := flag.Bool("debug", false, "Show debug information")

	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *serve != "" {
		if err := runServer(*serve, *token, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Override server URL if provided via flag
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
		// Save to config for future use
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save server URL to config: %v\n", err)
		}
	}
	if *mode != "" {
		m, err := models.ParseReadMode(*mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.ReadMode = m.String()
	}

	// Debug mode
	if *debug {
		fmt.Printf("Config path: %s\n", cfg.Path())
		fmt.Printf("Server URL: %s\n", cfg.ServerURL)
		fmt.Printf("Authenticated: %v\n", cfg.IsAuthenticated())
		fmt.Printf("Read mode: %s\n", cfg.Mode())
		fmt.Printf("Text scale: %.1f\n", cfg.GetTextScale())
		fmt.Printf("Switch cooldown: %s\n", cfg.SwitchCooldown())
		os.Exit(0)
	}

	log, err := newLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// A positional argument is a local file
	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}

	if err := run(cfg, log, *file, *bookID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the TUI over a local file, a single server book or the
// server library
func run(cfg *config.Config, log *zap.Logger, file, bookID string) error {
	var (
		source views.Source
		opts   = ui.Options{Log: log}
	)

	switch {
	case file != "":
		b, err := localbook.Open(file)
		if err != nil {
			return err
		}
		info := b.Info()
		source = views.NewLocalSource(b, cfg)
		opts.Book = &info
		log.Info("reading local file", zap.String("file", file), zap.String("book", info.ID))

	default:
		client := api.NewClient(cfg.ServerURL, cfg.Token)
		source = client
		if bookID == "" {
			opts.Catalog = client
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		book, err := client.GetBook(ctx, bookID)
		cancel()
		if api.IsNotFound(err) {
			return fmt.Errorf("no book %q on %s", bookID, cfg.ServerURL)
		}
		if err != nil {
			return fmt.Errorf("get book %s: %w", bookID, err)
		}
		opts.Book = book
	}

	app := ui.NewApp(cfg, source, opts)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// runServer serves files over the book server API until interrupted
func runServer(addr, token string, files []string) error {
	if len(files) == 0 {
		return errors.New("-serve needs at least one book file")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	books := make([]*localbook.Book, 0, len(files))
	for _, f := range files {
		b, err := localbook.Open(f)
		if err != nil {
			return err
		}
		info := b.Info()
		log.Info("serving book", zap.String("id", info.ID), zap.String("title", info.Title), zap.Int("chapters", len(b.TOC())))
		books = append(books, b)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           devserver.New(books, token, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// newLogger writes to path, or discards when path is empty. The terminal
// belongs to the TUI, so logs never go to stderr.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	zc := zap.NewDevelopmentConfig()
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	return zc.Build()
}

func printUsage() {
	fmt.Println("webby-pager - Terminal reader for Webby ebook servers and local files")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  webby-pager                     Browse the server library")
	fmt.Println("  webby-pager <file>              Read a local .txt, .md, .epub or .cbz file")
	fmt.Println("  webby-pager -b <id>             Open a server book directly")
	fmt.Println("  webby-pager -serve :8080 <files> Serve local files to other readers")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -s, --url <url>        Set server URL (saved to config)")
	fmt.Println("  -b, --book <id>        Open a book from the server")
	fmt.Println("  -f, --file <path>      Read a local file")
	fmt.Println("  --mode <mode>          scroll, curl or collection")
	fmt.Println("  --log <path>           Write a debug log")
	fmt.Println("  --serve <addr>         Run a book server for the given files")
	fmt.Println("  --token <token>        Token the server requires")
	fmt.Println("  --debug                Print configuration and exit")
	fmt.Println("  -h, --help             Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  WEBBY_URL, WEBBY_TOKEN, WEBBY_READ_MODE, WEBBY_SWITCH_COOLDOWN")
	fmt.Println()
	fmt.Println("Config: ~/.config/webby-pager/config.json")
}
