// TradeSwarm — multi-agent AI analysis for NSE stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tradeswarm/tradeswarm/api"
	"github.com/tradeswarm/tradeswarm/internal/agent"
	"github.com/tradeswarm/tradeswarm/internal/config"
	"github.com/tradeswarm/tradeswarm/internal/graph"
	"github.com/tradeswarm/tradeswarm/internal/llm"
	"github.com/tradeswarm/tradeswarm/internal/logging"
	"github.com/tradeswarm/tradeswarm/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, populated in PersistentPreRunE.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tradeswarm",
	Short: "TradeSwarm — multi-agent AI analysis for NSE stocks",
	Long: `TradeSwarm runs a swarm of specialist AI agents (technical,
fundamental, sentiment, risk) in parallel over live market data and
synthesizes their reports into a single BUY / HOLD / SELL call.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env in the working directory is optional.
		_ = godotenv.Load()

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		if cfg.Logging.Format == "json" {
			log = logging.New(os.Stderr, level)
		} else {
			log = logging.NewConsole(level)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TradeSwarm %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker or question]",
	Short: "Run the full agent swarm on a stock",
	Long: `Run the full agent swarm on a stock and print the combined report.

A bare symbol skips ticker extraction:
  tradeswarm analyze TCS
A natural-language question goes through the supervisor first:
  tradeswarm analyze "should I buy Reliance right now?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		swarm, err := buildSwarm()
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		fmt.Printf("🔍 Analyzing %q  (market: %s)\n\n", query, utils.MarketStatus())

		ctx := cmd.Context()
		var state graph.TradingState
		if len(args) == 1 && looksLikeSymbol(args[0]) {
			ticker := utils.EnsureSuffix(utils.NormalizeTicker(args[0]))
			state, err = swarm.AnalyzeTicker(ctx, ticker)
		} else {
			state, err = swarm.Analyze(ctx, query)
		}
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		printReport(state)
		return nil
	},
}

// looksLikeSymbol reports whether the argument is a bare ticker rather
// than a question, e.g. "TCS", "reliance", "INFY.NS".
func looksLikeSymbol(s string) bool {
	if strings.ContainsAny(s, " \t?") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '&' || r == '$':
		default:
			return false
		}
	}
	return true
}

// buildSwarm wires datasources, the LLM provider, and the agent graph
// from the loaded config.
func buildSwarm() (*agent.Swarm, error) {
	agentCfg, err := api.DefaultAgentConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	return agent.NewSwarm(agentCfg)
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting TradeSwarm API server on %s\n", addr)
		return api.NewServer(cfg, log).ListenAndServe(addr)
	},
}

// --- Models Command ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured LLM providers and their models",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := llm.NewRegistryFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("no LLM providers available: %w", err)
		}

		fmt.Printf("Providers: %s\n", strings.Join(registry.ProviderNames(), ", "))
		fmt.Println("Models:")
		for _, m := range registry.Models() {
			fmt.Printf("  %s\n", m)
		}

		results := registry.HealthCheck(cmd.Context())
		fmt.Println("Health:")
		for name, herr := range results {
			if herr != nil {
				fmt.Printf("  %-10s ❌ %v\n", name, herr)
			} else {
				fmt.Printf("  %-10s ✅ ok\n", name)
			}
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  TradeSwarm — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(utils.NowIST()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    History Days:  %d\n", cfg.Data.HistoryDays)
		fmt.Printf("    News Limit:    %d\n", cfg.Data.NewsLimit)
		fmt.Printf("    Cache TTL:     %ds\n", cfg.Data.CacheTTL)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
