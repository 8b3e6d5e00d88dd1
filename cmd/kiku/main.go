// Package main is the kiku CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/cli"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/generate"
	"github.com/hyperjump/kiku/internal/rag"
	"github.com/hyperjump/kiku/internal/retrieval"
	"github.com/hyperjump/kiku/internal/server"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/tui"
	"github.com/hyperjump/kiku/internal/watcher"
	"github.com/hyperjump/kiku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiku/config.yaml"

// loadConfig loads config from path. When path is the default and ./config.yaml exists,
// that file is used instead so "kiku server" from a project dir picks up the local config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional; it only supplies OPENAI_API_KEY and friends.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "document":
		runDocument()
	case "chat":
		runChat()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("kiku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("index", cfg.Retrieval.Index),
		zap.String("generator", cfg.Generation.Provider),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	inbox := watcher.NewInbox(components.Pipeline, logger)
	watchSvc := watcher.New(cfg.Watch.Directories, inbox.Handler(watchCtx),
		watcher.WithLogger(logger),
		watcher.WithExtensions(cfg.Watch.Extensions),
	)
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	opts := []server.Option{
		server.WithWatch(watchSvc, resolvedConfigPath),
		server.WithVersion(version),
	}
	if components.Disk != nil {
		opts = append(opts, server.WithDiskUsage(components.Disk))
	}
	srv := server.NewServer(components.Pipeline, cfg, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Index    retrieval.Index
	Pipeline *rag.Pipeline
	Disk     server.DiskUsager
}

// Close releases the index and the storage backend.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}
	if d, ok := store.(server.DiskUsager); ok {
		c.Disk = d
	}

	c.Index, err = retrieval.New(cfg.Retrieval, cfg.Embedding)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize %s index: %w", cfg.Retrieval.Index, err)
	}
	logger.Info("retrieval index initialized",
		zap.String("type", cfg.Retrieval.Index),
		zap.String("scope", cfg.Retrieval.Scope),
		zap.Int("top_k", cfg.Retrieval.TopK))

	gen, err := generate.New(cfg.Generation, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	opts, err := rag.OptionsFromConfig(cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	c.Pipeline = rag.New(store, c.Index, gen, opts...)
	return c, nil
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so flag.Parse sees them. "kiku chat what is this --chat ID"
// would otherwise leave --chat unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// clientFlags registers the flags shared by every command that talks to a running server.
func clientFlags(fs *flag.FlagSet) (serverURL, output *string) {
	serverURL = fs.String("server", serverURLFromEnv(), "server URL")
	output = fs.String("output", "text", "output format: text or json")
	return serverURL, output
}

func serverURLFromEnv() string {
	if v := os.Getenv("KIKU_SERVER"); v != "" {
		return v
	}
	return cli.DefaultServerURL
}

func mustFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
	os.Exit(1)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := mustFormat(*output)
	if fs.NArg() < 1 {
		fmt.Println("Usage: kiku ingest [flags] <file>...")
		os.Exit(1)
	}

	client := cli.NewClient(*serverURL)
	ctx := context.Background()
	results := make([]map[string]string, 0, fs.NArg())
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			fail("Read "+path, err)
		}
		id, err := client.Upload(ctx, path, content)
		if err != nil {
			fail("Ingest "+path, err)
		}
		results = append(results, map[string]string{"file": path, "asset_id": id})
		if format == cli.OutputText {
			fmt.Printf("%s  %s\n", id, path)
		}
	}
	if format == cli.OutputJSON {
		writeJSONOrFail(results)
	}
}

func runDocument() {
	fs := flag.NewFlagSet("document", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := mustFormat(*output)
	if fs.NArg() != 1 {
		fmt.Println("Usage: kiku document [flags] <asset-id>")
		os.Exit(1)
	}
	asset, err := cli.NewClient(*serverURL).Asset(context.Background(), fs.Arg(0))
	if err != nil {
		fail("Document", err)
	}
	if err := cli.WriteAsset(os.Stdout, asset, format); err != nil {
		fail("Output", err)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	assetID := fs.String("asset", "", "start a new chat against this asset id")
	chatID := fs.String("chat", "", "continue an existing chat")
	useTUI := fs.Bool("tui", false, "open the full-screen chat interface")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := mustFormat(*output)

	if (*assetID == "") == (*chatID == "") {
		fmt.Println("Usage: kiku chat (--asset <asset-id> | --chat <chat-id>) [message]")
		os.Exit(1)
	}

	client := cli.NewClient(*serverURL)
	ctx := context.Background()
	id := *chatID
	if id == "" {
		var err error
		if id, err = client.StartChat(ctx, *assetID); err != nil {
			fail("Start chat", err)
		}
		fmt.Fprintf(os.Stderr, "chat_id: %s\n", id)
	}

	send := func(msg string) (string, error) { return client.SendMessage(ctx, id, msg) }
	if msg := cli.JoinArgs(fs.Args()); msg != "" {
		resp, err := send(msg)
		if err != nil {
			fail("Message", err)
		}
		if err := cli.WriteReply(os.Stdout, id, resp, format); err != nil {
			fail("Output", err)
		}
		return
	}
	if *useTUI {
		title := "chat " + id
		if *assetID != "" {
			title = "asset " + *assetID
		}
		if err := tui.Run(ctx, client, id, title); err != nil {
			fail("Chat", err)
		}
		return
	}
	if err := chatLoop(os.Stdin, os.Stdout, id, format, send); err != nil {
		fail("Chat", err)
	}
}

// chatLoop sends one message per input line until EOF. Blank lines are skipped and
// failed messages are reported without ending the loop.
func chatLoop(in io.Reader, out io.Writer, chatID string, format cli.OutputFormat, send func(string) (string, error)) error {
	scanner := bufio.NewScanner(in)
	prompt := func() {
		if format == cli.OutputText {
			fmt.Fprint(out, "you> ")
		}
	}
	prompt()
	for scanner.Scan() {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			prompt()
			continue
		}
		resp, err := send(msg)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		} else if err := cli.WriteReply(out, chatID, resp, format); err != nil {
			return err
		}
		prompt()
	}
	if format == cli.OutputText {
		fmt.Fprintln(out)
	}
	return scanner.Err()
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := mustFormat(*output)
	if fs.NArg() != 1 {
		fmt.Println("Usage: kiku history [flags] <chat-id>")
		os.Exit(1)
	}
	entries, err := cli.NewClient(*serverURL).History(context.Background(), fs.Arg(0))
	if err != nil {
		fail("History", err)
	}
	if err := cli.WriteHistory(os.Stdout, fs.Arg(0), entries, format); err != nil {
		fail("Output", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL, output := clientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := mustFormat(*output)
	status, err := cli.NewClient(*serverURL).Status(context.Background())
	if err != nil {
		fail("Status", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fail("Output", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kiku watch <add|remove|list> [path]")
		fmt.Println("  kiku watch add <path>     Add an inbox directory")
		fmt.Println("  kiku watch remove <path>  Remove an inbox directory")
		fmt.Println("  kiku watch list           List inbox directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", serverURLFromEnv(), "server URL")
	_ = fs.Parse(os.Args[3:])
	client := cli.NewClient(*serverURL)
	ctx := context.Background()

	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: kiku watch %s <path>\n", sub)
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if sub == "add" {
			if err := client.WatchAdd(ctx, path); err != nil {
				fail("Add", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := client.WatchRemove(ctx, path); err != nil {
			fail("Remove", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.WatchList(ctx)
		if err != nil {
			fail("List", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func writeJSONOrFail(v interface{}) {
	if err := cli.WriteJSON(os.Stdout, v); err != nil {
		fail("Output", err)
	}
}

func printUsage() {
	fmt.Println(`kiku - Chat with your documents

Usage:
  kiku server [flags]                       Start the HTTP server
  kiku ingest [flags] <file>...             Upload .txt or .pdf documents
  kiku document [flags] <asset-id>          Show a stored document
  kiku chat --asset <id> [message]          Start a chat against a document
  kiku chat --chat <id> [message]           Continue a chat (reads stdin when no message is given)
  kiku chat --tui (--asset|--chat) <id>     Chat in a full-screen terminal interface
  kiku history [flags] <chat-id>            Show the exchanges of a chat
  kiku status [flags]                       Show store and index counts
  kiku watch <add|remove|list>              Manage inbox directories
  kiku version                              Show version
  kiku help                                 Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kiku/config.yaml, ./config.yaml if present)
  --debug            Enable debug logging

Client Flags:
  --server string    Server URL (default: $KIKU_SERVER or http://localhost:5000)
  --output string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY     API key for the openai generator (also read from .env)
  KIKU_GENERATOR     Overrides generation.provider (openai or ollama)
  OLLAMA_HOST        Base URL for the ollama generator

Examples:
  kiku server
  kiku ingest handbook.pdf
  kiku chat --asset 0b7c... "What is the refund policy?"
  kiku chat --chat 5f2e...
  kiku history --output json 5f2e...
  kiku watch add ~/inbox`)
}
