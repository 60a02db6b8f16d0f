package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/configurator"
)

const (
	appName    = "Gerber to solid translation tool"
	appVersion = "0.2.0"
)

var (
	// configuration base
	viperConfig = viper.New()

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "gerber2solid",
	Short: appName,
	Long: appName + `

Reads Gerber RS-274X copper layers, builds the copper outline
and writes it as an extruded solid (STL), an outline plot (PDF)
or a raster preview (PNG).

Examples:
  gerber2solid import top.gbr --stl top.stl
  gerber2solid import *.gbr --pdf layers.pdf --workers 4
  gerber2solid config init config.toml`,
	Version:           appVersion,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	defer glog.Flush()
	// interrupt stops the batch from starting more files
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		glog.Flush()
		os.Exit(1)
	}
}

func init() {
	configurator.SetDefaults(viperConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default ./config.toml)")
	// glog flags: -v, -logtostderr, -vmodule ...
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// glog refuses to log before the go flags are parsed
	flag.CommandLine.Parse(nil)
	if cfgFile != "" {
		viperConfig.SetConfigFile(cfgFile)
	}
	err := configurator.ProcessConfigFile(viperConfig)
	switch {
	case errors.Is(err, configurator.ErrNoConfigFile):
		if glog.V(1) {
			glog.Infoln(err)
		}
	case err != nil:
		return fmt.Errorf("configuration: %w", err)
	}
	if glog.V(3) {
		configurator.DiagnosticAllCfgPrint(viperConfig)
	}
	return nil
}
