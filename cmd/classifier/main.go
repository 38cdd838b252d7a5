// Command classifier runs the token spam/phishing classifier, per
// spec.md's overview, in the teacher's cobra-subcommand CLI shape
// (cmd/synnergy/main.go).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tokenwatch/internal/analyzer"
	"tokenwatch/internal/chain"
	"tokenwatch/internal/honeypot"
	"tokenwatch/internal/ingress"
	"tokenwatch/internal/logging"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/model"
	"tokenwatch/internal/orchestrator"
	"tokenwatch/internal/store"
	"tokenwatch/internal/tokenlist"
	"tokenwatch/internal/transformer"
	"tokenwatch/internal/verdict"

	classifierconfig "tokenwatch/internal/config"
)

func main() {
	_ = godotenv.Load(".env")
	viper.AutomaticEnv()

	root := &cobra.Command{Use: "classifier"}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.AddCommand(runCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*classifierconfig.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return classifierconfig.Load(path)
}

// system bundles the wiring every subcommand needs: store, collaborators,
// analyzer and orchestrator.
type system struct {
	cfg          *classifierconfig.Config
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	adapter      *ingress.Adapter
	client       *ethclient.Client
}

func buildSystem(cfg *classifierconfig.Config) (*system, error) {
	entry := logging.New(cfg.Debug).WithField("component", "classifier")

	s, err := store.Open(cfg.Storage.DBPath, entry)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var tl chain.TokenList
	if seed, err := tokenlist.Load(dataPath(cfg, cfg.Data.TokensFile)); err != nil {
		entry.WithError(err).Warn("token list unavailable, continuing without it")
	} else {
		tl = seed
	}
	lb, err := tokenlist.LoadLeaderboard(dataPath(cfg, cfg.Data.LeadersFile))
	if err != nil {
		entry.WithError(err).Warn("leaderboard unavailable, continuing without it")
	}
	var hp chain.HoneypotOracle
	if seed, err := honeypot.Load(dataPath(cfg, cfg.Data.HoneypotsFile)); err != nil {
		entry.WithError(err).Warn("honeypot seed list unavailable, continuing without it")
	} else {
		hp = seed
	}

	client, err := ethclient.Dial(cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	provider, err := chain.NewEthProvider(client)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	identifier, err := chain.NewABIIdentifier(client)
	if err != nil {
		return nil, fmt.Errorf("build identifier: %w", err)
	}

	tr := transformer.New(s)
	mem := memoizer.New()
	az := analyzer.New(s, tr, mem, provider, hp, tl, lb, &cfg.Detectors, entry)
	orch := orchestrator.New(s, mem, az, cfg.Detectors.TickInterval, entry)
	adapter := ingress.New(s, orch, identifier, entry)

	return &system{cfg: cfg, store: s, orchestrator: orch, adapter: adapter, client: client}, nil
}

func dataPath(cfg *classifierconfig.Config, file string) string {
	if file == "" {
		return ""
	}
	return cfg.Data.Dir + string(os.PathSeparator) + file
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the classifier against the configured chain feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			debugFeed, _ := cmd.Flags().GetBool("debug-feed")
			encoder := json.NewEncoder(os.Stdout)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sys.orchestrator.Start(ctx)

			var head atomic.Uint64
			if h, err := sys.client.BlockNumber(ctx); err == nil {
				head.Store(h)
				go pollChainFeed(ctx, sys.client, sys.adapter, h+1, 3*time.Second, &head)
			}

			tick := cfg.Detectors.TickInterval
			if cfg.Debug || tick <= 0 {
				tick = time.Second // debug: tick every block, approximated by a short poll
			}
			ticker := time.NewTicker(tick)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					sys.orchestrator.Drain()
					return nil
				case now := <-ticker.C:
					sys.orchestrator.Tick(now, head.Load())
					for _, released := range sys.orchestrator.ReleaseAnalyses() {
						for _, ev := range verdict.FromReleased(released) {
							if debugFeed {
								_ = encoder.Encode(ev)
							} else {
								fmt.Printf("%s %s\n", ev.Kind, ev.Token)
							}
						}
					}
				}
			}
		},
	}
	cmd.Flags().Bool("debug-feed", false, "emit newline-delimited JSON verdict events for the debug dashboard")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [address]",
		Short: "run a single on-demand scan of a watched token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sys, err := buildSystem(cfg)
			if err != nil {
				return err
			}
			addr := model.NormalizeAddress(args[0])
			tc, ok, err := sys.store.Token(addr)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("token %s is not watched", addr)
			}
			if err := sys.orchestrator.OnNewToken(*tc); err != nil {
				return err
			}
			head, err := sys.client.BlockNumber(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch chain head: %w", err)
			}
			sys.orchestrator.Tick(time.Now(), head)
			sys.orchestrator.Drain()
			for _, released := range sys.orchestrator.ReleaseAnalyses() {
				fmt.Printf("isSpam=%v isPhishing=%v confidence=%.2f\n",
					released.Interp.IsSpam, released.Interp.IsPhishing, released.Interp.Confidence)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config"}
	show := &cobra.Command{
		Use:   "show [path]",
		Short: "print the effective configuration as loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			cfg, err := classifierconfig.Load(path)
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}
