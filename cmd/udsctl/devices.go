package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/pkg/jabi"
)

type deviceRow struct {
	Interface   string `json:"interface" yaml:"interface"`
	Path        string `json:"path" yaml:"path"`
	ID          string `json:"id" yaml:"id"`
	Serial      string `json:"serial" yaml:"serial"`
	Description string `json:"description" yaml:"description"`
}

func newDevicesCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List USB adapters, serial ports and HID devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := []deviceRow{}

			filter := jabi.USBFilter{}
			if !all {
				filter = jabi.USBFilter{VendorID: a.cfg.USB.VendorID, ProductID: a.cfg.USB.ProductID}
			}
			if usbs, err := jabi.ListUSB(filter); err != nil {
				slog.Warn("usb enumeration failed", slog.Any("error", err))
			} else {
				for _, d := range usbs {
					rows = append(rows, deviceRow{
						Interface:   "usb",
						Path:        d.Path,
						ID:          fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID),
						Serial:      d.Serial,
						Description: d.Product,
					})
				}
			}

			if ports, err := jabi.ListUART(); err != nil {
				slog.Warn("serial port enumeration failed", slog.Any("error", err))
			} else {
				for _, p := range ports {
					id := ""
					if p.IsUSB {
						id = p.VendorID + ":" + p.ProductID
					}
					rows = append(rows, deviceRow{
						Interface:   "uart",
						Path:        p.Name,
						ID:          id,
						Serial:      p.SerialNumber,
						Description: p.Product,
					})
				}
			}

			if hids, err := jabi.ListHID(); err != nil {
				slog.Warn("hid enumeration failed", slog.Any("error", err))
			} else {
				for _, h := range hids {
					if !all && (h.VendorID != a.cfg.HID.VendorID || h.ProductID != a.cfg.HID.ProductID) {
						continue
					}
					rows = append(rows, deviceRow{
						Interface:   "hid",
						Path:        h.Path,
						ID:          fmt.Sprintf("%04x:%04x", h.VendorID, h.ProductID),
						Serial:      h.Serial,
						Description: h.Product,
					})
				}
			}

			return a.print(cmd, rows)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every USB and HID device, not only adapters")
	return cmd
}
