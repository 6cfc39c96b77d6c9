package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/barrybecker4/applets-sub001/internal/games/tictactoe"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

func newSelfPlayCmd(g *globalFlags) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "selfplay",
		Short: "Play a whole game with the engine on both sides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			diag := search.NewDiagnostics(log.Logger, 0)
			game, err := tictactoe.New(g.rows, g.cols, g.k, g.seed, diag)
			if err != nil {
				return err
			}
			// one cache for the whole game: later searches reuse earlier work
			sc, err := g.newCache()
			if err != nil {
				return err
			}
			searcher, err := g.newSearcher(game, sc, diag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			weights := tictactoe.DefaultWeights(g.k)
			var total int64
			for ply := 1; !game.Over(); ply++ {
				ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
				res, err := searcher.BestMove(ctx, game.Searchable.LastMove(), weights)
				cancel()
				if err != nil {
					return err
				}
				if res.Move == nil {
					return fmt.Errorf("ply %d: no move found", ply)
				}
				if err := game.Apply(res.Move); err != nil {
					return fmt.Errorf("ply %d: %w", ply, err)
				}
				total += res.MovesConsidered
				if !quiet {
					fmt.Fprintf(out, "%2d. %s (value %d, %d moves considered)\n%s\n", ply, res.Move, res.Value, res.MovesConsidered, game)
				}
			}

			if w := game.Winner(); w != search.NoPlayer {
				fmt.Fprintf(out, "winner: %s\n", w)
			} else {
				fmt.Fprintln(out, "draw")
			}
			fmt.Fprintf(out, "moves considered: %d\n", total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "print only the outcome")
	return cmd
}
