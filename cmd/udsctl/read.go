package main

import (
	"fmt"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/internal/config"
	"github.com/seagrayinc/linuds/pkg/isotp"
)

type didValue struct {
	DID   string `json:"did" yaml:"did"`
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

func newDIDValue(id uint16, value []byte) didValue {
	return didValue{DID: formatID(id), Value: isotp.FormatBytes(value), Text: printable(value)}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read DID [DID...]",
		Short: "Read data identifiers (ReadDataByIdentifier)",
		Example: `  udsctl read F190
  udsctl -i sim -o json read 0xF18C F195`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			rows := make([]didValue, 0, len(ids))
			for _, id := range ids {
				ctx, cancel := a.exchangeContext(cmd.Context())
				value, err := c.session.ReadDataByIdentifier(ctx, id, a.cfg.UDS.Delay.Std())
				cancel()
				if err != nil {
					return err
				}
				rows = append(rows, newDIDValue(id, value))
			}
			return a.print(cmd, rows)
		},
	}
}

func parseIDs(args []string) ([]uint16, error) {
	ids := make([]uint16, 0, len(args))
	for _, arg := range args {
		id, err := config.ParseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatID(id uint16) string {
	return fmt.Sprintf("%04X", id)
}

// printable renders value as text when every byte is printable ASCII.
func printable(value []byte) string {
	if len(value) == 0 {
		return ""
	}
	for _, b := range value {
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return ""
		}
	}
	return string(value)
}
