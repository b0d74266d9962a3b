// Package loader keeps a compiled container on disk next to a marker that records
// which version of the definition file produced it.
//
// The marker holds the sha256 of the definition file's modification time and the
// sha256 of the generated code. Load regenerates the container when the marker is
// missing or stale, or when the generated file is gone or no longer matches its
// digest. Both files are published by writing a temporary file in the target
// directory and renaming it, code first. Between the two renames the new code sits
// next to the old marker; a Load in that window sees a digest mismatch and
// regenerates, so a marker never vouches for code it was not written for.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	typePrefix = "Container_"
	hashLen    = 8
	metaSuffix = ".meta"
)

// Source produces the Go source of a container type. *compiler.Compiler implements it.
type Source interface {
	Source(typeName string) ([]byte, error)
}

// Result describes one Load.
type Result struct {
	TypeName  string
	Path      string
	Marker    string
	Digest    string
	Generated bool
}

// Loader regenerates cached container sources when their definition file changes.
type Loader struct {
	source     Source
	configPath string
	dir        string
	log        log.FieldLogger
	perm       os.FileMode
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for regeneration messages.
func WithLogger(l log.FieldLogger) Option { return func(ld *Loader) { ld.log = l } }

// WithFileMode sets the permission bits of published files. The default is 0644.
func WithFileMode(m os.FileMode) Option { return func(ld *Loader) { ld.perm = m } }

// New returns a loader that compiles through source, watches configPath and writes
// into dir.
func New(source Source, configPath, dir string, opts ...Option) *Loader {
	ld := &Loader{
		source:     source,
		configPath: configPath,
		dir:        dir,
		log:        log.StandardLogger(),
		perm:       0o644,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// TypeName returns the container type name used for key.
func TypeName(key string) string {
	return typePrefix + sha256Hex([]byte(key))[:hashLen]
}

// TypeName is the package-level TypeName.
func (ld *Loader) TypeName(key string) string { return TypeName(key) }

// Path returns the file the container for key is written to.
func (ld *Loader) Path(key string) string {
	return filepath.Join(ld.dir, strings.ToLower(TypeName(key))+".go")
}

// Load makes sure the container source for key is current and reports where it is.
func (ld *Loader) Load(key string) (Result, error) {
	res := Result{TypeName: TypeName(key), Path: ld.Path(key)}

	marker, err := ld.marker()
	if err != nil {
		return Result{}, err
	}
	res.Marker = marker

	digest, fresh, err := ld.fresh(res.Path, marker)
	if err != nil {
		return Result{}, err
	}
	if fresh {
		res.Digest = digest
		ld.log.WithFields(log.Fields{"type": res.TypeName, "path": res.Path}).Debug("container is up to date")
		return res, nil
	}

	src, err := ld.source.Source(res.TypeName)
	if err != nil {
		return Result{}, errors.Wrapf(err, "compiling %s", res.TypeName)
	}
	if err := os.MkdirAll(ld.dir, 0o755); err != nil {
		return Result{}, errors.Wrapf(err, "creating cache directory %s", ld.dir)
	}
	if err := ld.publish(res.Path, src); err != nil {
		return Result{}, err
	}
	res.Digest = sha256Hex(src)
	if err := ld.publish(res.Path+metaSuffix, []byte(marker+" "+res.Digest)); err != nil {
		return Result{}, err
	}
	res.Generated = true

	ld.log.WithFields(log.Fields{
		"type":   res.TypeName,
		"path":   res.Path,
		"config": ld.configPath,
	}).Info("container regenerated")
	return res, nil
}

// marker hashes the definition file's modification time.
func (ld *Loader) marker() (string, error) {
	fi, err := os.Stat(ld.configPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading definition file %s", ld.configPath)
	}
	return sha256Hex([]byte(strconv.FormatInt(fi.ModTime().UnixNano(), 10))), nil
}

// fresh reports whether the stored marker matches marker and the generated file
// still has the digest recorded next to it.
func (ld *Loader) fresh(path, marker string) (string, bool, error) {
	stored, err := os.ReadFile(path + metaSuffix)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading marker %s", path+metaSuffix)
	}
	fields := strings.Fields(string(stored))
	if len(fields) != 2 || fields[0] != marker {
		return "", false, nil
	}
	code, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %s", path)
	}
	if sha256Hex(code) != fields[1] {
		return "", false, nil
	}
	return fields[1], true, nil
}

// publish writes b to a temporary file in the target directory and renames it over path.
func (ld *Loader) publish(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dic-*")
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for %s", path)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "closing %s", name)
	}
	if err := os.Chmod(name, ld.perm); err != nil {
		cleanup()
		return errors.Wrapf(err, "setting mode of %s", name)
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "publishing %s", path)
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
