package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seagrayinc/linuds/internal/config"
	"github.com/seagrayinc/linuds/internal/ecusim"
	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/jabi"
	"github.com/seagrayinc/linuds/pkg/lin"
	"github.com/seagrayinc/linuds/pkg/uds"
)

type simState struct {
	once sync.Once
	ecu  *ecusim.ECU
	err  error
}

// conn is an open adapter with a diagnostic session on one of its LIN instances.
type conn struct {
	dev     *jabi.Device
	session *uds.Session
}

func (c *conn) Close() error {
	return c.dev.Close()
}

func (a *app) openDevice(ctx context.Context) (*jabi.Device, error) {
	cfg := a.cfg
	opts := []jabi.DeviceOption{jabi.WithDeviceLogger(slog.Default())}

	switch cfg.Interface {
	case config.InterfaceUSB:
		return jabi.OpenUSB(ctx, jabi.USBFilter{
			VendorID:  cfg.USB.VendorID,
			ProductID: cfg.USB.ProductID,
			Serial:    cfg.USB.Serial,
		}, opts...)
	case config.InterfaceUART:
		return jabi.OpenUART(ctx, cfg.UART.Port, cfg.UART.Baud, cfg.UART.Timeout.Std(), opts...)
	case config.InterfaceHID:
		return jabi.OpenHID(ctx, cfg.HID.VendorID, cfg.HID.ProductID, cfg.HID.ReportID, opts...)
	case config.InterfaceSim:
		ecu, err := a.simECU()
		if err != nil {
			return nil, err
		}
		return jabi.Connect(ctx, jabi.NewPacketInterface(ecusim.NewAdapter(ecu)), opts...)
	default:
		return nil, fmt.Errorf("unknown interface %q", cfg.Interface)
	}
}

func (a *app) simECU() (*ecusim.ECU, error) {
	if a.sim == nil {
		a.sim = &simState{}
	}

	a.sim.once.Do(func() {
		dids, err := a.cfg.Sim.Parse()
		if err != nil {
			a.sim.err = err
			return
		}

		opts := append(ecusim.DefaultProfile(), ecusim.WithNAD(a.cfg.Sim.NAD), ecusim.WithLatency(a.cfg.Sim.Latency))
		for _, d := range dids {
			opts = append(opts, ecusim.WithDID(d.ID, d.Value, d.ReadOnly))
		}
		a.sim.ecu = ecusim.New(opts...)
	})
	return a.sim.ecu, a.sim.err
}

// connect opens the adapter and configures its LIN instance as a diagnostic commander.
func (a *app) connect(ctx context.Context) (*conn, error) {
	dev, err := a.openDevice(ctx)
	if err != nil {
		return nil, err
	}

	link, err := lin.NewLink(ctx, dev.LINBus(a.cfg.LIN.Instance), lin.WithBitrate(a.cfg.LIN.Bitrate))
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("configure lin %d: %w", a.cfg.LIN.Instance, err)
	}

	tp := &isotp.Transport{
		Link:         link,
		Address:      a.cfg.LIN.NAD,
		PollInterval: a.cfg.UDS.PollInterval.Std(),
	}
	session := uds.New(tp, uds.WithLogger(slog.Default()), uds.WithObserver(a.metrics))
	return &conn{dev: dev, session: session}, nil
}

// exchangeContext bounds one exchange by the configured timeout.
func (a *app) exchangeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := a.cfg.UDS.Timeout.Std(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}
