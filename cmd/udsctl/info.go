package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/pkg/jabi"
)

type adapterInfo struct {
	Interface   string `json:"interface" yaml:"interface"`
	Serial      string `json:"serial" yaml:"serial"`
	ReqMaxSize  uint32 `json:"req_max_size" yaml:"req_max_size"`
	RespMaxSize uint32 `json:"resp_max_size" yaml:"resp_max_size"`

	// Instances counts each peripheral the adapter implements, by name.
	Instances map[string]int `json:"instances" yaml:"instances"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show adapter metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			dev, err := a.openDevice(ctx)
			if err != nil {
				return err
			}
			defer dev.Close()

			info := adapterInfo{Interface: a.cfg.Interface}
			if info.Serial, err = dev.Serial(ctx); err != nil {
				return err
			}
			if info.Instances, err = instances(ctx, dev); err != nil {
				return err
			}
			if info.ReqMaxSize, err = dev.ReqMaxSize(ctx); err != nil {
				return err
			}
			if info.RespMaxSize, err = dev.RespMaxSize(ctx); err != nil {
				return err
			}
			return a.print(cmd, info)
		},
	}
}

func instances(ctx context.Context, dev *jabi.Device) (map[string]int, error) {
	counts := make(map[string]int)
	for _, id := range jabi.Peripherals() {
		if id == jabi.PeriphMetadata {
			continue
		}
		n, err := dev.NumInstances(ctx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			counts[jabi.PeriphName(id)] = n
		}
	}
	return counts, nil
}
