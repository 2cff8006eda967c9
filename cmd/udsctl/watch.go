package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type watchEvent struct {
	Time  string `json:"time" yaml:"time"`
	DID   string `json:"did" yaml:"did"`
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		count    int
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "watch DID [DID...]",
		Short: "Poll data identifiers and print every change",
		Long: `Poll the given data identifiers every --interval and print a line whenever a
value changes. Exchange counts, durations and negative responses are exported
as Prometheus metrics on --metrics while watching.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if interval <= 0 {
				return errors.New("interval must be positive")
			}
			if !cmd.Flags().Changed("metrics") {
				listen = a.cfg.Metrics.Listen
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			g, ctx := errgroup.WithContext(cmd.Context())
			pollCtx, stopPolling := context.WithCancel(ctx)
			defer stopPolling()

			if listen != "" {
				g.Go(func() error {
					return a.metrics.Serve(pollCtx, listen)
				})
			}

			g.Go(func() error {
				defer stopPolling()

				last := make(map[uint16][]byte, len(ids))
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for round := 0; count == 0 || round < count; round++ {
					if round > 0 {
						select {
						case <-pollCtx.Done():
							return nil
						case <-ticker.C:
						}
					}

					for _, id := range ids {
						exCtx, cancel := a.exchangeContext(pollCtx)
						value, err := c.session.ReadDataByIdentifier(exCtx, id, a.cfg.UDS.Delay.Std())
						cancel()
						if pollCtx.Err() != nil {
							return nil
						}
						if err != nil {
							slog.Warn("read failed", slog.String("did", formatID(id)), slog.Any("error", err))
							continue
						}

						if prev, seen := last[id]; seen && bytes.Equal(prev, value) {
							continue
						}
						last[id] = value

						v := newDIDValue(id, value)
						if err := a.print(cmd, watchEvent{
							Time:  time.Now().Format(time.RFC3339Nano),
							DID:   v.DID,
							Value: v.Value,
							Text:  v.Text,
						}); err != nil {
							return err
						}
					}
				}
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	cmd.Flags().IntVar(&count, "count", 0, "number of polling rounds (0 polls until interrupted)")
	cmd.Flags().StringVar(&listen, "metrics", "", "address to serve /metrics on (default from config, empty disables)")
	return cmd
}
