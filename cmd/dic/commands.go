package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sghaida/dic/di"
	"github.com/sghaida/dic/loader"
)

//
// -------------------------
// generate
// -------------------------

type generateCmd struct {
	out     string
	pkg     string
	typName string
}

func (g *generateCmd) registerFlags(_ *cli) *cobra.Command {
	r := &cobra.Command{
		Use:   "generate",
		Short: "Compile the definition file into a container source file",
		Args:  cobra.NoArgs,
	}
	r.Flags().StringVarP(&g.out, "out", "o", "", "output .go file (default $DIC_OUT or container.gen.go)")
	r.Flags().StringVarP(&g.pkg, "package", "p", "", "package clause (default: the file's package, then $DIC_PACKAGE)")
	r.Flags().StringVarP(&g.typName, "type", "t", "", "container type name (default $DIC_TYPE or Container)")
	return r
}

func (g *generateCmd) run(cl *cli, _ *cobra.Command, _ []string) error {
	out := firstNonEmpty(g.out, cl.env.Out)
	typName := firstNonEmpty(g.typName, cl.env.Type)

	raw, err := os.ReadFile(cl.config)
	if err != nil {
		return errors.Wrapf(err, "reading %s", cl.config)
	}
	header := fmt.Sprintf("source: %s sha256:%s", filepath.Base(cl.config), sha256Hex(raw))

	c, err := cl.compiler(g.pkg, header)
	if err != nil {
		return err
	}
	src, err := c.Source(typName)
	if err != nil {
		return errors.Wrapf(err, "compiling %s", typName)
	}
	if err := writeFile(out, src); err != nil {
		return err
	}
	fmt.Fprintf(cl.stdout, "%s %s (%s, %d services)\n", success("wrote"), out, typName, len(c.BuildOrder()))
	return nil
}

//
// -------------------------
// cache
// -------------------------

type cacheCmd struct {
	dir string
	key string
	pkg string
}

func (cc *cacheCmd) registerFlags(_ *cli) *cobra.Command {
	r := &cobra.Command{
		Use:   "cache",
		Short: "Regenerate the cached container when the definition file changed",
		Args:  cobra.NoArgs,
	}
	r.Flags().StringVarP(&cc.dir, "dir", "d", "", "cache directory (default $DIC_CACHE_DIR or .dic)")
	r.Flags().StringVarP(&cc.key, "key", "k", "", "cache key; each key gets its own container type")
	r.Flags().StringVarP(&cc.pkg, "package", "p", "", "package clause (default: the file's package, then $DIC_PACKAGE)")
	return r
}

func (cc *cacheCmd) run(cl *cli, _ *cobra.Command, _ []string) error {
	c, err := cl.compiler(cc.pkg)
	if err != nil {
		return err
	}
	dir := firstNonEmpty(cc.dir, cl.env.CacheDir)
	res, err := loader.New(c, cl.config, dir, loader.WithLogger(cl.log)).Load(cc.key)
	if err != nil {
		return err
	}
	status := notice("up to date")
	if res.Generated {
		status = success("regenerated")
	}
	fmt.Fprintf(cl.stdout, "%s %s -> %s\n", status, res.TypeName, res.Path)
	return nil
}

//
// -------------------------
// check
// -------------------------

type checkCmd struct {
	typName string
}

func (ck *checkCmd) registerFlags(_ *cli) *cobra.Command {
	r := &cobra.Command{
		Use:   "check",
		Short: "Validate the definition file and print the build order",
		Args:  cobra.NoArgs,
	}
	r.Flags().StringVarP(&ck.typName, "type", "t", "", "container type name (default $DIC_TYPE or Container)")
	return r
}

func (ck *checkCmd) run(cl *cli, _ *cobra.Command, _ []string) error {
	c, err := cl.compiler("")
	if err != nil {
		return err
	}
	if _, err := c.Compile(firstNonEmpty(ck.typName, cl.env.Type)); err != nil {
		return errors.Wrap(err, "check failed")
	}
	for _, key := range c.BuildOrder() {
		def, _ := c.Builder().Definition(key)
		fmt.Fprintf(cl.stdout, "%s\t%s\n", key, def.Type())
	}
	fmt.Fprintln(cl.stdout, success("ok"))
	return nil
}

//
// -------------------------
// dump
// -------------------------

type dumpCmd struct{}

// dumpedService is the printable form of a definition.
type dumpedService struct {
	Key        string
	Type       string
	Shared     bool
	Arguments  []any
	Factory    di.Factory
	Calls      []dumpedCall
	Properties map[string]any
}

type dumpedCall struct {
	Method    string
	Target    any
	Arguments []any
}

func (d *dumpCmd) registerFlags(_ *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [key...]",
		Short: "Print the parsed definitions",
	}
}

func (d *dumpCmd) run(cl *cli, _ *cobra.Command, args []string) error {
	f, b, err := cl.builder()
	if err != nil {
		return err
	}
	keys := args
	if len(keys) == 0 {
		keys = b.Definitions().Keys()
	}

	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		DisableMethods:          true,
		SortKeys:                true,
	}
	fmt.Fprintf(cl.stdout, "%s %s\n", notice("parameters"), cl.config)
	cfg.Fdump(cl.stdout, b.Params().All())

	for _, key := range keys {
		def, ok := b.Definition(key)
		if !ok {
			return di.UndefinedServiceError{Key: di.NormalizeKey(key)}
		}
		fmt.Fprintf(cl.stdout, "%s %s\n", notice("service"), di.NormalizeKey(key))
		cfg.Fdump(cl.stdout, describe(di.NormalizeKey(key), def))
	}
	if len(f.Extensions) > 0 {
		fmt.Fprintf(cl.stdout, "%s %v\n", notice("extensions"), f.Extensions)
	}
	return nil
}

func describe(key string, def *di.Definition) dumpedService {
	out := dumpedService{
		Key:       key,
		Type:      def.Type(),
		Shared:    def.Shared(),
		Arguments: def.Arguments(),
		Factory:   def.Factory(),
	}
	for _, c := range def.MethodCalls() {
		out.Calls = append(out.Calls, dumpedCall{Method: c.Method(), Target: c.Target(), Arguments: c.Arguments()})
	}
	if def.HasPropertySetters() {
		out.Properties = map[string]any{}
		for _, p := range def.PropertySetters() {
			out.Properties[p.Name()] = p.Value()
		}
	}
	return out
}
