package factstore

import (
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/duynguyendang/symlog/pkg/common/errors"
)

// Config describes where and how a fact store keeps its data.
type Config struct {
	// DataDir holds the badger/ sub-directory of an on-disk store.
	DataDir string

	// InMemory keeps everything in memory; DataDir is ignored.
	InMemory bool

	// Compression enables ZSTD compression of badger tables. Fact values are S2-compressed
	// regardless.
	Compression bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Profile picks cache and table sizes: "Default" or "Low-Mem".
	Profile string

	// ReadOnly opens an existing store without write access.
	ReadOnly bool
}

// Validate rejects combinations badger cannot open.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return errors.Wrap(errors.ErrInvalidInput, "fact store: DataDir must be specified when InMemory is false")
	}
	if c.InMemory && c.ReadOnly {
		return errors.Wrap(errors.ErrInvalidInput, "fact store: an in-memory store cannot be read-only")
	}
	switch c.Profile {
	case "", "Default", "Low-Mem":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "fact store: unknown profile %q", c.Profile)
	}
	return nil
}

// DefaultConfig returns the configuration of an on-disk store under dataDir.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:     dataDir,
		Compression: true,
		Profile:     "Default",
	}
}

// buildBadgerOptions maps cfg onto badger options, sizing caches by profile.
func buildBadgerOptions(cfg *Config) badger.Options {
	if cfg.InMemory {
		opts := badger.DefaultOptions("")
		opts.InMemory = true
		opts.Logger = newBadgerLogger()
		return opts
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.DataDir, "badger"))
	opts.Logger = newBadgerLogger()
	opts.ReadOnly = cfg.ReadOnly
	opts.SyncWrites = cfg.SyncWrites

	if cfg.Compression {
		opts.Compression = options.ZSTD
	} else {
		opts.Compression = options.None
	}

	switch cfg.Profile {
	case "Low-Mem":
		opts.ValueLogFileSize = 32 << 20
		opts.NumCompactors = 2
		opts.IndexCacheSize = 64 << 20
		opts.BlockCacheSize = 64 << 20
		opts.MemTableSize = 16 << 20
	default:
		opts.ValueLogFileSize = 256 << 20
		opts.BlockCacheSize = 256 << 20
	}
	return opts
}
