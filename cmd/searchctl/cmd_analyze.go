package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/barrybecker4/applets-sub001/internal/cachestore"
	"github.com/barrybecker4/applets-sub001/internal/games/tictactoe"
	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

type analyzeReport struct {
	Position        string        `json:"position"`
	ToMove          search.Player `json:"toMove"`
	BestMove        *search.Move  `json:"bestMove,omitempty"`
	Value           int           `json:"value"`
	Interrupted     bool          `json:"interrupted"`
	MovesConsidered int64         `json:"movesConsidered"`
	ElapsedMs       int64         `json:"elapsedMs"`
	Cache           string        `json:"cache,omitempty"`
	Anomalies       int           `json:"anomalies"`
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var (
		moves     string
		asJSON    bool
		storePath string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Find the best move in a position",
		Example: `  searchctl analyze --moves "0,0 1,0 0,1 1,1"
  searchctl analyze --rows 4 --cols 4 -k 3 -s negascout -d 5 --moves "(1,1);(2,2)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := geometry.ParseLocations(moves)
			if err != nil {
				return err
			}
			diag := search.NewDiagnostics(log.Logger, 0)
			game, err := tictactoe.FromMoves(g.rows, g.cols, g.k, g.seed, diag, locs)
			if err != nil {
				return err
			}
			if game.Over() {
				return fmt.Errorf("the game is already over (winner %s)", game.Winner())
			}
			sc, err := g.newCache()
			if err != nil {
				return err
			}
			searcher, err := g.newSearcher(game, sc, diag)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			res, err := searcher.BestMove(ctx, game.Searchable.LastMove(), tictactoe.DefaultWeights(g.k))
			if err != nil {
				return err
			}

			report := analyzeReport{
				Position:        game.String(),
				ToMove:          game.ToMove(),
				BestMove:        res.Move,
				Value:           res.Value,
				Interrupted:     res.Interrupted,
				MovesConsidered: res.MovesConsidered,
				ElapsedMs:       res.Elapsed.Milliseconds(),
				Anomalies:       len(diag.Recent()),
			}
			if sc != nil {
				report.Cache = sc.String()
			}

			if storePath != "" && sc != nil {
				store, err := cachestore.Open(cachestore.Config{Path: storePath}, log.Logger)
				if err != nil {
					return err
				}
				defer store.Close()
				if _, err := store.Save(ctx, g.geometryKey(), sc); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(out, report.Position)
			fmt.Fprintf(out, "to move:          %s\n", report.ToMove)
			fmt.Fprintf(out, "best move:        %s\n", report.BestMove)
			fmt.Fprintf(out, "value:            %d\n", report.Value)
			fmt.Fprintf(out, "moves considered: %d\n", report.MovesConsidered)
			fmt.Fprintf(out, "elapsed:          %s\n", res.Elapsed)
			if report.Interrupted {
				fmt.Fprintln(out, "search was interrupted; the move is the best found so far")
			}
			if report.Cache != "" {
				fmt.Fprintf(out, "cache:            %s\n", report.Cache)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&moves, "moves", "m", "", `moves played so far, X first, e.g. "0,0 1,1"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&storePath, "save-cache", "", "badger directory to save the score cache to")
	return cmd
}
