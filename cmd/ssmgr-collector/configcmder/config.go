package configcmder

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arkbriar/ssmgr-collector/pkg/config"
	"github.com/arkbriar/ssmgr-collector/pkg/logger"
)

const configLongDesc string = `Resolve the plugin configuration and print it as TOML.

The configuration is read from the SIP003 environment variables
SS_REMOTE_HOST, SS_REMOTE_PORT, SS_LOCAL_HOST, SS_LOCAL_PORT and the
optional SS_PLUGIN_OPTIONS. The command fails naming the first missing
or invalid variable.

Examples:
  SS_REMOTE_HOST=1.2.3.4 SS_REMOTE_PORT=8388 \
  SS_LOCAL_HOST=127.0.0.1 SS_LOCAL_PORT=1080 \
  SS_PLUGIN_OPTIONS="status=127.0.0.1:6062" ssmgr-collector config`

const configShortDesc string = "Print the resolved plugin configuration"

const optionDebug = "debug"

type configCommander struct {
	store *config.Store
	debug bool
}

// tomlConfig is the printed form of a resolved configuration.
type tomlConfig struct {
	RemoteHost string            `toml:"remote_host"`
	RemotePort uint16            `toml:"remote_port"`
	LocalHost  string            `toml:"local_host"`
	LocalPort  uint16            `toml:"local_port"`
	Options    map[string]string `toml:"options"`
}

func NewConfigCmd(store *config.Store) *cobra.Command {
	cmder := &configCommander{store: store}

	cmd := &cobra.Command{
		Use:           "config",
		Short:         configShortDesc,
		Long:          configLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	// Shadows the root's persistent --debug so the command also works standalone.
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *configCommander) run(_ context.Context, cmd *cobra.Command) error {
	log := logger.New(cmd.ErrOrStderr(), c.debug)
	c.store.SetLogger(log)

	cfg, err := c.store.Get()
	if err != nil {
		return fmt.Errorf("could not resolve plugin configuration: %w", err)
	}

	if !c.debug && cfg.OptionEnabled(optionDebug) {
		log = logger.New(cmd.ErrOrStderr(), true)
	}
	defer log.Sync()

	log.Debug("printing resolved configuration",
		zap.String("remote", cfg.RemoteAddr()),
		zap.String("local", cfg.LocalAddr()),
	)

	out := tomlConfig{
		RemoteHost: cfg.RemoteHost(),
		RemotePort: cfg.RemotePort(),
		LocalHost:  cfg.LocalHost(),
		LocalPort:  cfg.LocalPort(),
		Options:    cfg.Options(),
	}
	if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(out); err != nil {
		return fmt.Errorf("could not encode configuration: %w", err)
	}

	return nil
}
