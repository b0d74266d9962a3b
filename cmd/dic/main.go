// dic/cmd/dic/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sghaida/dic/compiler"
	"github.com/sghaida/dic/config"
	"github.com/sghaida/dic/di"
)

// cli holds the root command and the settings shared by every subcommand.
type cli struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	envFile  string
	logLevel string
	noColor  bool

	// config is the definition file; filled from DIC_CONFIG when the flag is unset.
	config string

	env *config.Env
	log *log.Logger
}

type command interface {
	registerFlags(cl *cli) *cobra.Command
	run(cl *cli, cmd *cobra.Command, args []string) error
}

func newCLI(stdout, stderr io.Writer) *cli {
	cl := &cli{stdout: stdout, stderr: stderr}

	cl.root = &cobra.Command{
		Use:               "dic",
		Short:             "dic compiles service definitions into a Go dependency injection container",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cl.setup,
	}
	cl.root.SetOut(stdout)
	cl.root.SetErr(stderr)

	pf := cl.root.PersistentFlags()
	pf.StringVar(&cl.envFile, "env-file", ".env", "optional .env file with DIC_* defaults")
	pf.StringVar(&cl.logLevel, "log-level", "", "log level (panic, fatal, error, warn, info, debug, trace)")
	pf.BoolVar(&cl.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&cl.config, "config", "c", "", "definition file (default $DIC_CONFIG or services.yaml)")

	cl.addCmd(&generateCmd{})
	cl.addCmd(&cacheCmd{})
	cl.addCmd(&checkCmd{})
	cl.addCmd(&dumpCmd{})
	return cl
}

func (cl *cli) addCmd(c command) {
	cobraCmd := c.registerFlags(cl)
	cobraCmd.RunE = func(inner *cobra.Command, args []string) error {
		return c.run(cl, inner, args)
	}
	cl.root.AddCommand(cobraCmd)
}

// setup loads the environment, fills unset flags from it and configures logging.
func (cl *cli) setup(cmd *cobra.Command, _ []string) error {
	cl.env = config.LoadEnv(cl.envFile)
	if cl.config == "" {
		cl.config = cl.env.Config
	}
	if cl.logLevel == "" {
		cl.logLevel = cl.env.LogLevel
		if cl.env.Debug {
			cl.logLevel = "debug"
		}
	}

	level, err := log.ParseLevel(cl.logLevel)
	if err != nil {
		return errors.Wrap(err, "invalid --log-level")
	}
	cl.log = log.New()
	cl.log.SetOutput(cl.stderr)
	cl.log.SetLevel(level)

	if cl.noColor {
		disableColor()
	}
	return nil
}

// builder loads the definition file into a new builder.
func (cl *cli) builder() (*config.File, *di.Builder, error) {
	f, err := config.Load(cl.config)
	if err != nil {
		return nil, nil, err
	}
	b, err := f.Builder()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "applying %s", cl.config)
	}
	cl.log.WithFields(log.Fields{
		"config":   cl.config,
		"services": b.Definitions().Len(),
	}).Debug("definitions loaded")
	return f, b, nil
}

// compiler returns a compiler over the definition file with its extensions attached.
// pkg wins over the file's package, which wins over DIC_PACKAGE.
func (cl *cli) compiler(pkg string, header ...string) (*compiler.Compiler, error) {
	f, b, err := cl.builder()
	if err != nil {
		return nil, err
	}
	if pkg == "" {
		pkg = f.Package
	}
	if pkg == "" {
		pkg = cl.env.Package
	}
	c := compiler.New(b,
		compiler.WithPackage(pkg),
		compiler.WithHeader(header...),
		compiler.WithLogger(cl.log),
	)
	if err := f.AttachExtensions(c); err != nil {
		return nil, err
	}
	return c, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	cl := newCLI(stdout, stderr)
	cl.root.SetArgs(args)
	return cl.root.Execute()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, failure("error:"), strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
