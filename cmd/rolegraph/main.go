// Package main is the rolegraph CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hyperjump/rolegraph/internal/config"
	"github.com/hyperjump/rolegraph/internal/metrics"
	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/search"
	"github.com/hyperjump/rolegraph/internal/server"
	"github.com/hyperjump/rolegraph/internal/summarize"
	"github.com/hyperjump/rolegraph/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rolegraph/config.yaml"

// loadConfig loads config from path. If path is the default and the file
// does not exist, it tries config.yaml in the current directory (for
// development), matching the teacher's fallback shape.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath {
			if unwrap := errors.Unwrap(err); unwrap != nil && os.IsNotExist(unwrap) {
				if cwd, cwdErr := os.Getwd(); cwdErr == nil {
					fallback := filepath.Join(cwd, "config.yaml")
					if _, statErr := os.Stat(fallback); statErr == nil {
						cfg, loadErr := config.Load(fallback)
						if loadErr != nil {
							return nil, "", loadErr
						}
						return cfg, fallback, nil
					}
				}
			}
		}
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "rebuild-kg":
		runRebuildKG()
	case "version", "--version", "-v":
		fmt.Printf("rolegraph version %s\n", version)
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
	addr := fs.String("addr", ":8080", "address to listen on")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := utils.NewProductionLogger()
	defer logger.Sync()

	state, err := config.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize role graphs", zap.Error(err))
	}
	stopWatchers := state.StartWatchers()
	defer stopWatchers()

	reg := metrics.New(prometheus.DefaultRegisterer)
	state.SetMetrics(reg)
	summarizer := summarize.NewInMemory(stubSummary)
	engine := search.New(state, nil, summarizer)
	engine.SetMetrics(reg)
	srv := server.New(engine, state, reg, logger, *addr)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// stubSummary is the zero-config InMemory summarizer backend: it echoes the
// document's opening text back as its description. A deployment that wants
// real LLM summaries wires summarize.Temporal instead.
func stubSummary(_ context.Context, doc models.Document) (string, error) {
	return utils.Truncate(doc.Body, 240), nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = search directly against config)")
	role := fs.String("role", "", "role to search (default: config's selected role)")
	limit := fs.Int("limit", 10, "number of results")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rolegraph search [flags] <query>")
		os.Exit(1)
	}
	queryStr := fs.Arg(0)

	query := models.SearchQuery{SearchTerm: queryStr, Role: *role, Limit: uint32(*limit)}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			os.Exit(1)
		}
		printSearchResults(response)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := utils.NewProductionLogger()
	defer logger.Sync()

	state, err := config.New(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize role graphs: %v\n", err)
		os.Exit(1)
	}

	engine := search.New(state, nil, nil)
	response, err := engine.Search(context.Background(), query)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	printSearchResults(&response)
}

func searchViaHTTP(serverURL string, query models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func printSearchResults(resp *models.SearchResponse) {
	if resp.Status != models.StatusSuccess {
		fmt.Printf("search error: %s\n", resp.Error)
		return
	}
	fmt.Printf("%d result(s) (total %d)\n", len(resp.Results), resp.Total)
	for i, doc := range resp.Results {
		fmt.Printf("%d. [%s] %s\n", i+1, doc.ID, doc.Title)
	}
}

func runRebuildKG() {
	fs := flag.NewFlagSet("rebuild-kg", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rolegraph rebuild-kg [flags] <role>")
		os.Exit(1)
	}
	roleName := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, _ := utils.NewProductionLogger()
	defer logger.Sync()

	state, err := config.New(cfg, logger)
	if err != nil {
		fmt.Printf("Failed to initialize role graphs: %v\n", err)
		os.Exit(1)
	}

	if err := state.RebuildRole(roleName); err != nil {
		fmt.Printf("Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Role %q rebuilt\n", roleName)
}

func printUsage() {
	fmt.Println(`rolegraph - role-scoped concept-graph search engine

Usage:
  rolegraph server [flags]              Start the HTTP server
  rolegraph search [flags] <query>      Search documents
  rolegraph rebuild-kg [flags] <role>   Rebuild a role's thesaurus and graph
  rolegraph version                     Show version
  rolegraph help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/rolegraph/config.yaml)
  --addr string      Address to listen on (default: :8080)

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty to search directly.
  --role string      Role to search (default: config's selected role)
  --limit int        Number of results (default: 10)

Rebuild-kg Flags:
  --config string    Config file path

Examples:
  rolegraph server
  rolegraph search "graph embeddings"
  rolegraph search --role Engineer --server "" "haystack service"
  rolegraph rebuild-kg Engineer`)
}
