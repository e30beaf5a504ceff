package collectorcmder

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkbriar/ssmgr-collector/api"
	"github.com/arkbriar/ssmgr-collector/cmd/ssmgr-collector/configcmder"
	"github.com/arkbriar/ssmgr-collector/pkg/config"
	"github.com/arkbriar/ssmgr-collector/pkg/logger"
)

const collectorLongDesc string = `Traffic collector plugin for shadowsocks (SIP003).

The collector is started by the shadowsocks server, which passes the
connection parameters through the environment:

  SS_REMOTE_HOST, SS_REMOTE_PORT   remote management host
  SS_LOCAL_HOST, SS_LOCAL_PORT     local bind address
  SS_PLUGIN_OPTIONS                optional "key=value;key=value" options

Recognized plugin options:
  status=<addr>   serve /health and /config on addr
  debug=true      enable debug logging`

const collectorShortDesc string = "SIP003 traffic collector plugin"

const (
	optionStatus = "status"
	optionDebug  = "debug"
)

type collectorCommander struct {
	store *config.Store
	debug bool
}

// NewCollectorCmd returns the root command bound to the process-wide configuration.
func NewCollectorCmd() *cobra.Command {
	return newCollectorCmd(config.Default())
}

func newCollectorCmd(store *config.Store) *cobra.Command {
	cmder := &collectorCommander{store: store}

	cmd := &cobra.Command{
		Use:           "ssmgr-collector",
		Short:         collectorShortDesc,
		Long:          collectorLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.PersistentFlags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.AddCommand(configcmder.NewConfigCmd(store))

	return cmd
}

func (c *collectorCommander) run(ctx context.Context, cmd *cobra.Command) error {
	log := logger.New(cmd.ErrOrStderr(), c.debug)
	c.store.SetLogger(log)

	cfg, err := c.store.Get()
	if err != nil {
		log.Error("invalid plugin environment", zap.Error(err))
		return fmt.Errorf("could not resolve plugin configuration: %w", err)
	}

	if !c.debug && cfg.OptionEnabled(optionDebug) {
		log = logger.New(cmd.ErrOrStderr(), true)
		log.Debug("debug logging enabled by plugin option")
	}
	defer log.Sync()

	log.Info("ssmgr-collector starting",
		zap.String("remote", cfg.RemoteAddr()),
		zap.String("local", cfg.LocalAddr()),
		zap.Any("options", cfg.Options()),
	)

	var (
		srv   *api.Server
		ln    net.Listener
		errCh = make(chan error, 1)
	)
	if addr, ok := cfg.Option(optionStatus); ok && addr != "" {
		srv, err = api.NewServer(api.Config{ListenAddr: addr}, cfg, log)
		if err != nil {
			return fmt.Errorf("could not create status server: %w", err)
		}
		// Bind before serving so Shutdown always has a listener to close.
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("could not listen on status address %s: %w", addr, err)
		}
		go func() {
			errCh <- srv.RunWithListener(ln)
		}()
	}

	var serveErr error
	served := false
	select {
	case <-ctx.Done():
		log.Info("ssmgr-collector stopping")
	case serveErr = <-errCh:
		served = true
	}

	if srv != nil {
		if err := srv.Shutdown(); err != nil {
			log.Warn("failed to shut down status server", zap.Error(err))
		}
		// Serve may not have started yet, in which case Shutdown does not see ln.
		_ = ln.Close()
		if !served {
			<-errCh
		}
	}

	if serveErr != nil {
		return fmt.Errorf("status server failed: %w", serveErr)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
