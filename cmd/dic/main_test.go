package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/dic/di"
	"github.com/sghaida/dic/loader"
)

const servicesYAML = `package: app

parameters:
  mail.host: smtp.local

types:
  - name: "*app.Logger"
    import: example.com/app
  - name: "*app.Mailer"
    import: example.com/app
    constructor:
      symbol: app.NewMailer
      returnsError: true
      params:
        - {name: host}
        - {name: logger, type: "*app.Logger"}
    methods:
      SetDebug: {}

services:
  logger:
    type: "*app.Logger"
  mailer:
    type: "*app.Mailer"
    arguments: ["%mail.host%"]
    calls:
      - {method: SetDebug, arguments: [true]}
`

const cycleYAML = `types:
  - name: "*app.A"
    import: example.com/app
    constructor: {symbol: app.NewA, params: [{name: b}]}
  - name: "*app.B"
    import: example.com/app
    constructor: {symbol: app.NewB, params: [{name: a}]}
services:
  a: {type: "*app.A", arguments: ["@b"]}
  b: {type: "*app.B", arguments: ["@a"]}
`

// TestRun_Errors verifies argument and input failures surface as errors.
func TestRun_Errors(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	good := p.write("services.yaml", servicesYAML)
	bad := p.write("bad.yaml", "servises: {}\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown_command", args: []string{"wat"}, wantErr: `unknown command "wat"`},
		{name: "unknown_flag", args: []string{"generate", "--wat"}, wantErr: "unknown flag: --wat"},
		{name: "extra_args", args: []string{"generate", "x"}, wantErr: `unknown command "x"`},
		{name: "bad_log_level", args: []string{"--log-level", "loud", "check", "-c", good}, wantErr: "invalid --log-level"},
		{name: "missing_config", args: []string{"check", "-c", p.out("nope.yaml")}, wantErr: "no such file"},
		{name: "strict_yaml", args: []string{"check", "-c", bad}, wantErr: "servises"},
		{name: "bad_type_name", args: []string{"generate", "-c", good, "-o", p.out("x.go"), "-t", "not-a-name"}, wantErr: "must be a Go identifier"},
		{name: "dump_unknown_key", args: []string{"dump", "-c", good, "nope"}, wantErr: `service "nope" is not defined`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := runCLI(tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v want contains %q", err, tt.wantErr)
			}
		})
	}
}

// TestRun_Generate verifies the generated file, its header and the package fallback.
func TestRun_Generate(t *testing.T) {
	t.Parallel()

	t.Run("package_from_file", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		cfg := p.write("services.yaml", servicesYAML)

		stdout, _, err := runCLI("generate", "-c", cfg, "-o", p.out("gen/container.gen.go"), "-t", "App")
		require.NoError(t, err)
		assert.Contains(t, stdout, "wrote")
		assert.Contains(t, stdout, "(App, 2 services)")

		out := p.read("gen/container.gen.go")
		assertContainsInOrder(t, out,
			"// Code generated by dic; DO NOT EDIT.",
			"// source: services.yaml sha256:"+sha256Hex([]byte(servicesYAML)),
			"package app",
			`"example.com/app"`,
			"type App struct",
			"func NewApp() *App",
			"func (c *App) LoggerService() (*app.Logger, error) {",
			"func (c *App) MailerService() (*app.Mailer, error) {",
			`app.NewMailer("smtp.local", dep1)`,
			"service.SetDebug(true)",
		)
	})

	t.Run("package_flag_wins", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		cfg := p.write("services.yaml", servicesYAML)

		_, _, err := runCLI("generate", "-c", cfg, "-o", p.out("c.go"), "-t", "App", "-p", "wiring")
		require.NoError(t, err)
		assert.Contains(t, p.read("c.go"), "package wiring")
	})

	t.Run("compile_error_writes_nothing", func(t *testing.T) {
		t.Parallel()
		p := newPkg(t)
		cfg := p.write("cycle.yaml", cycleYAML)

		_, _, err := runCLI("generate", "-c", cfg, "-o", p.out("c.go"), "-t", "App")
		require.Error(t, err)
		assert.True(t, errors.Is(err, di.ErrCircularDependency))
		assert.NoFileExists(t, p.out("c.go"))
	})
}

// TestRun_Check verifies the build order listing and cycle reporting.
func TestRun_Check(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	cfg := p.write("services.yaml", servicesYAML)
	cycle := p.write("cycle.yaml", cycleYAML)

	stdout, _, err := runCLI("check", "-c", cfg)
	require.NoError(t, err)
	assertContainsInOrder(t, stdout, "logger\t*app.Logger\n", "mailer\t*app.Mailer\n", "ok")

	_, _, err = runCLI("check", "-c", cycle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `check failed: di: circular dependency: "a" -> "b" -> "a"`)
}

// TestRun_Cache verifies the cache command regenerates once per definition change.
func TestRun_Cache(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	cfg := p.write("services.yaml", servicesYAML)
	dir := p.out("cache")

	stdout, _, err := runCLI("cache", "-c", cfg, "-d", dir, "-k", "prod")
	require.NoError(t, err)
	assertContainsInOrder(t, stdout, "regenerated", loader.TypeName("prod"))

	generated := filepath.Join(dir, strings.ToLower(loader.TypeName("prod"))+".go")
	assert.Contains(t, mustReadString(t, generated), "package app")
	assert.FileExists(t, generated+".meta")

	stdout, _, err = runCLI("cache", "-c", cfg, "-d", dir, "-k", "prod")
	require.NoError(t, err)
	assert.Contains(t, stdout, "up to date")
}

// TestRun_Dump verifies definitions are printed with spew.
func TestRun_Dump(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	cfg := p.write("services.yaml", servicesYAML)

	stdout, _, err := runCLI("dump", "-c", cfg)
	require.NoError(t, err)
	assertContainsInOrder(t, stdout,
		"parameters", `"mail.host": (string) (len=10) "smtp.local"`,
		"service logger", `Type: (string) (len=11) "*app.Logger"`,
		"service mailer", `Type: (string) (len=11) "*app.Mailer"`, "Shared: (bool) true",
		`Method: (string) (len=8) "SetDebug"`,
	)

	stdout, _, err = runCLI("dump", "-c", cfg, "MAILER")
	require.NoError(t, err)
	assert.Contains(t, stdout, "service mailer")
	assert.NotContains(t, stdout, "service logger")
}

// TestRun_LogLevel verifies debug logs go to stderr.
func TestRun_LogLevel(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	cfg := p.write("services.yaml", servicesYAML)

	_, stderr, err := runCLI("--log-level", "debug", "check", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "definitions loaded")
	assert.Contains(t, stderr, "container compiled")

	_, stderr, err = runCLI("--log-level", "error", "check", "-c", cfg)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

// TestRun_EnvFile verifies DIC_* defaults come from the .env file and flags still win.
func TestRun_EnvFile(t *testing.T) {
	p := newPkg(t)
	cfg := p.write("services.yaml", servicesYAML)
	out := p.out("env.gen.go")
	envFile := p.write("dic.env", "DIC_CONFIG="+cfg+"\nDIC_OUT="+out+"\nDIC_TYPE=EnvApp\n")

	for _, k := range []string{"DIC_CONFIG", "DIC_OUT", "DIC_TYPE", "DIC_PACKAGE", "DIC_LOG_LEVEL", "DIC_DEBUG"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	err := run([]string{"--env-file", envFile, "generate"}, &strings.Builder{}, &strings.Builder{})
	require.NoError(t, err)
	assertContainsInOrder(t, p.read("env.gen.go"), "package app", "type EnvApp struct")

	err = run([]string{"--env-file", envFile, "generate", "-t", "FlagApp"}, &strings.Builder{}, &strings.Builder{})
	require.NoError(t, err)
	assert.Contains(t, p.read("env.gen.go"), "type FlagApp struct")
}

// TestHelpers_CoverFatalBranches verifies the harness reports missing parts.
func TestHelpers_CoverFatalBranches(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), `expected to find "z"`) {
			t.Fatalf("unexpected recover value %v", r)
		}
	}()
	assertContainsInOrder(fatalTB{}, "a b", "b", "z")
}
