package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/internal/config"
	"github.com/seagrayinc/linuds/pkg/isotp"
)

type writeResult struct {
	DID    string `json:"did" yaml:"did"`
	Length int    `json:"length" yaml:"length"`
	Status string `json:"status" yaml:"status"`
}

func newWriteCmd(a *app) *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "write DID VALUE",
		Short: "Write a data identifier (WriteDataByIdentifier)",
		Long: `Write VALUE to DID. VALUE is hex ("00-2a", "002A", "0x002a") unless --text
is given, in which case it is written as is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := config.ParseID(args[0])
			if err != nil {
				return err
			}
			value := []byte(args[1])
			if !text {
				if value, err = isotp.ParseBytes(args[1]); err != nil {
					return fmt.Errorf("value: %w", err)
				}
			}
			if len(value) == 0 {
				return fmt.Errorf("value must not be empty")
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := a.exchangeContext(cmd.Context())
			defer cancel()
			if err := c.session.WriteDataByIdentifier(ctx, id, value, a.cfg.UDS.Delay.Std()); err != nil {
				return err
			}
			return a.print(cmd, writeResult{DID: formatID(id), Length: len(value), Status: "ok"})
		},
	}

	cmd.Flags().BoolVar(&text, "text", false, "treat VALUE as text instead of hex")
	return cmd
}
