package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/cachestore"
)

func newCacheStatsCmd() *cobra.Command {
	var storePath string
	cmd := &cobra.Command{
		Use:   "cache-stats",
		Short: "Summarise the score cache snapshots in a badger store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storePath == "" {
				return fmt.Errorf("--store is required")
			}
			store, err := cachestore.Open(cachestore.Config{Path: storePath}, log.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			names, err := store.Names(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SNAPSHOT\tENTRIES\tEXACT\tLOWER\tUPPER\tMAX DEPTH")
			for _, name := range names {
				records, err := store.Records(ctx, name)
				if err != nil {
					return err
				}
				var exact, lower, upper, maxDepth int
				for _, r := range records {
					switch r.Entry.Bound {
					case cache.Exact:
						exact++
					case cache.Lower:
						lower++
					case cache.Upper:
						upper++
					}
					maxDepth = max(maxDepth, r.Entry.Depth)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", name, len(records), exact, lower, upper, maxDepth)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "badger directory holding the snapshots")
	return cmd
}
