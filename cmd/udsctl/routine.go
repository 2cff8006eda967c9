package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/internal/config"
	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/uds"
)

type routineResult struct {
	Routine string `json:"routine" yaml:"routine"`
	Kind    string `json:"kind" yaml:"kind"`
	Result  string `json:"result" yaml:"result"`
}

func newRoutineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routine",
		Short: "Control routines (RoutineControl)",
	}

	for _, kind := range []uds.RoutineKind{uds.RoutineStart, uds.RoutineStop, uds.RoutineRequestResults} {
		cmd.AddCommand(newRoutineKindCmd(a, kind))
	}
	return cmd
}

func newRoutineKindCmd(a *app, kind uds.RoutineKind) *cobra.Command {
	use := kind.String()
	var aliases []string
	if kind == uds.RoutineRequestResults {
		use = "results"
		aliases = []string{kind.String()}
	}

	return &cobra.Command{
		Use:     use + " RID [DATA]",
		Aliases: aliases,
		Short:   fmt.Sprintf("Send the %s sub-function to routine RID", kind),
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := config.ParseID(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if len(args) == 2 {
				if data, err = isotp.ParseBytes(args[1]); err != nil {
					return fmt.Errorf("data: %w", err)
				}
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := a.exchangeContext(cmd.Context())
			defer cancel()
			result, err := c.session.RoutineControl(ctx, kind, id, data, a.cfg.UDS.Delay.Std())
			if err != nil {
				return err
			}
			return a.print(cmd, routineResult{Routine: formatID(id), Kind: kind.String(), Result: isotp.FormatBytes(result)})
		},
	}
}
