package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yleoer/zhconv/pkg/database"
)

func newHistoryCommand(opts *rootOpts) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.HistoryDB == "" {
				return errors.New("history is disabled; set ZHCONV_HISTORY_DB or history_db")
			}
			store, err := database.NewSQLiteStore(opts.cfg.HistoryDB, opts.logger)
			if err != nil {
				return errors.Errorf("opening history: %w", err)
			}
			defer store.Close()

			var data pterm.TableData
			if runID != "" {
				outcomes, err := store.GetOutcomes(cmd.Context(), runID)
				if err != nil {
					return err
				}
				data = pterm.TableData{{"#", "File", "Result", "Changed", "Encoding", "Error"}}
				for i, o := range outcomes {
					res := "ok"
					if !o.Success {
						res = "failed"
					}
					data = append(data, []string{strconv.Itoa(i + 1), o.Path, res, strconv.FormatBool(o.Changed), string(o.Encoding), o.ErrorReason})
				}
			} else {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				data = pterm.TableData{{"Run", "Started", "Direction", "Root", "Total", "Success", "Failed"}}
				for _, r := range runs {
					data = append(data, []string{
						r.RunID,
						r.StartedAt.Local().Format("2006-01-02 15:04:05"),
						r.Direction,
						r.RootPath,
						strconv.Itoa(r.TotalCount),
						strconv.Itoa(r.SuccessCount),
						strconv.Itoa(r.FailedCount),
					})
				}
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering table: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "show per-file outcomes of one run")
	return cmd
}
