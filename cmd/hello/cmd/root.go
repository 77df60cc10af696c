package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/earthbuild/hello-earthly/pkg/config"
	"github.com/earthbuild/hello-earthly/pkg/logging"
	"github.com/earthbuild/hello-earthly/pkg/server"
)

var versionInfo = struct {
	version string
	commit  string
	date    string
}{"dev", "none", "unknown"}

// SetVersion records build information for the version command
func SetVersion(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
}

// app carries the state shared by every subcommand
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	configFile string
}

// NewRootCommand builds the hello command tree with its own viper instance
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "hello",
		Short: "Greeting HTTP service with a conditional local lifecycle",
		Long: `hello serves GET /hello on port 8080 and answers "Hello <who>",
defaulting to "Hello Earthly".

It can probe whether a server is already listening, start one only when
needed, and call a running instance.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	d := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: hello.yaml in . or $HOME)")
	flags.String("host", d.Host, "Host to listen on or probe (empty listens on all interfaces)")
	flags.Int("port", d.Port, "HTTP server port")
	flags.String("environment", d.Environment, "Environment: development, test or production")
	flags.String("log-level", d.LogLevel, "Log level")
	flags.String("log-format", d.LogFormat, "Log format: text or json")
	a.bindFlags(rootCmd, "host", "port", "environment", "log-level", "log-format")

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newProbeCommand(a))
	rootCmd.AddCommand(newGreetCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// bindFlags binds the named persistent or local flags of cmd to viper keys of the same name
func (a *app) bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		if f == nil {
			panic(fmt.Sprintf("unknown flag %q", name))
		}
		if err := a.v.BindPFlag(name, f); err != nil {
			panic(err)
		}
	}
}

func (a *app) load(_ *cobra.Command, _ []string) error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg); err != nil {
		return err
	}
	gin.SetMode(server.GinMode(cfg.Environment))
	a.cfg = cfg
	return nil
}

// Execute runs the hello command tree
func Execute() error {
	return NewRootCommand().Execute()
}
