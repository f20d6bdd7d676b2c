package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpctrl "github.com/Agrid-Dev/parasweep/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/parasweep/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/parasweep/internal/controllers/mqtt"
)

// runnable is a controller that blocks until its context ends.
type runnable interface {
	Run(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sweep form and progress until interrupted",
		Long: `Serve starts the sweep runner together with every enabled controller
(HTTP form and JSON API, MQTT, Modbus TCP). Sweeps submitted through any of
them run one at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			st, err := newStack(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var ctrls []runnable
			if cfg.Controllers.HTTP.Enabled {
				ctrls = append(ctrls, httpctrl.New(st.service, cfg.Controllers.HTTP.Addr, cfg.Project.Name,
					cfg.Sweep.Form, st.log.With("controller", "http")))
				st.log.Info("http listening", "addr", cfg.Controllers.HTTP.Addr)
			}
			if cfg.Controllers.MQTT.Enabled {
				c, err := mqttctrl.New(st.service, cfg.MQTT(), st.log.With("controller", "mqtt"))
				if err != nil {
					return err
				}
				ctrls = append(ctrls, c)
			}
			if cfg.Controllers.MODBUS.Enabled {
				c, err := modbusctrl.New(st.service, cfg.Modbus(), st.log.With("controller", "modbus"))
				if err != nil {
					return err
				}
				ctrls = append(ctrls, c)
				st.log.Info("modbus listening", "addr", cfg.Controllers.MODBUS.Addr)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return st.service.Serve(gctx) })
			for _, c := range ctrls {
				g.Go(func() error { return c.Run(gctx) })
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
