package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/games/tictactoe"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// flags shared by every command
type globalFlags struct {
	logLevel    string
	rows        int
	cols        int
	k           int
	seed        int64
	strategy    string
	depth       int
	quiescence  bool
	qdepth      int
	noAlphaBeta bool
	cachePolicy string
	cacheSize   int
	timeout     time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "searchctl",
		Short: "Search k-in-a-row positions with the game-tree engine",
		Long: `searchctl runs minimax, negamax, NegaScout or MTD(f) searches on
m x n boards where k stones in a row win (3x3, k=3 is tic-tac-toe).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(g.logLevel)
			if err != nil {
				return fmt.Errorf("bad --log-level: %w", err)
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	pf.IntVar(&g.rows, "rows", 3, "board rows")
	pf.IntVar(&g.cols, "cols", 3, "board columns")
	pf.IntVarP(&g.k, "k", "k", 3, "stones in a row needed to win")
	pf.Int64Var(&g.seed, "seed", 1, "hash seed")
	pf.StringVarP(&g.strategy, "strategy", "s", string(search.NegaMax), "minimax, negamax, negascout or mtd")
	pf.IntVarP(&g.depth, "depth", "d", search.DefaultLookAhead, "look-ahead in plies")
	pf.BoolVarP(&g.quiescence, "quiescence", "q", false, "extend urgent lines past the look-ahead")
	pf.IntVar(&g.qdepth, "quiescent-depth", search.DefaultMaxQuiescentDepth, "extra plies quiescence may add")
	pf.BoolVar(&g.noAlphaBeta, "no-alphabeta", false, "disable alpha-beta pruning")
	pf.StringVar(&g.cachePolicy, "cache", string(cache.PolicyLRU), "score cache policy: lru, depth-preferred, unbounded or off")
	pf.IntVar(&g.cacheSize, "cache-size", cache.DefaultMaxEntries, "score cache entries")
	pf.DurationVar(&g.timeout, "timeout", time.Minute, "give up on a search after this long")

	root.AddCommand(newAnalyzeCmd(g), newSelfPlayCmd(g), newCacheStatsCmd())
	return root
}

func (g *globalFlags) options() (search.Options, error) {
	opts := search.DefaultOptions()
	opts.Strategy = search.Kind(g.strategy)
	opts.LookAhead = g.depth
	opts.Quiescence = g.quiescence
	opts.MaxQuiescentDepth = g.qdepth
	opts.AlphaBeta = !g.noAlphaBeta
	if opts.MaxTotalDepth < g.depth+g.qdepth {
		opts.MaxTotalDepth = g.depth + g.qdepth
	}
	return opts, opts.Validate()
}

// newCache returns nil when caching is off.
func (g *globalFlags) newCache() (*cache.ScoreCache, error) {
	if g.cachePolicy == "off" {
		return nil, nil
	}
	return cache.New(cache.Config{Policy: cache.Policy(g.cachePolicy), MaxEntries: g.cacheSize})
}

func (g *globalFlags) geometryKey() string {
	return fmt.Sprintf("%dx%dk%d", g.rows, g.cols, g.k)
}

// newSearcher builds a searcher for game with the flags' options.
func (g *globalFlags) newSearcher(game *tictactoe.Game, sc *cache.ScoreCache, diag *search.Diagnostics) (*search.Searcher, error) {
	opts, err := g.options()
	if err != nil {
		return nil, err
	}
	searcherOpts := []search.SearcherOption{
		search.WithDiagnostics(diag),
		search.WithLogger(log.Logger),
	}
	if sc != nil {
		searcherOpts = append(searcherOpts, search.WithCache(sc))
	}
	return search.NewSearcher(game.Searchable, opts, searcherOpts...)
}
