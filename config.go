package kowari

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndexKind names one of the three interchangeable index implementations
// in pkg/index.
type IndexKind string

const (
	// IndexFlat is the exhaustive, exact brute-force index.
	IndexFlat IndexKind = "flat"
	// IndexLSH is the approximate random-hyperplane hashing index.
	IndexLSH IndexKind = "lsh"
	// IndexHNSW is the approximate layered-graph index.
	IndexHNSW IndexKind = "hnsw"
)

// Config holds the defaults a collection manager applies when a caller
// doesn't override them explicitly: where collections live on disk, which
// index kind new collections build by default, and how many collections
// stay open at once. It also carries index parameters (LSHPlanes, HNSWM,
// HNSWEf), which pkg/collection does not read.
type Config struct {
	// BaseDir is the directory under which each collection gets its own
	// subdirectory (vectors.kwi + metadata.sqlite3).
	BaseDir string `yaml:"base_dir"`

	// DefaultIndex is the index kind built for a collection when the
	// caller doesn't request one explicitly.
	DefaultIndex IndexKind `yaml:"default_index"`

	// LSHPlanes is the number of random hyperplanes (P in spec.md §4.3)
	// for an LSH index. Collections opened through pkg/collection ignore
	// it and always build their LSH index with 12 planes.
	LSHPlanes int `yaml:"lsh_planes"`

	// HNSWM is the neighbour cap per level (M in spec.md §4.4). Collections
	// opened through pkg/collection ignore it and always use M=16.
	HNSWM int `yaml:"hnsw_m"`

	// HNSWEf is the level-0 visit budget (ef in spec.md §4.4). Collections
	// opened through pkg/collection ignore it and always use ef=64.
	HNSWEf int `yaml:"hnsw_ef"`

	// MaxOpenCollections bounds the manager's LRU cache of open
	// collections (spec.md §4.7).
	MaxOpenCollections int `yaml:"max_open_collections"`
}

// DefaultConfig returns sane defaults rooted at baseDir.
func DefaultConfig(baseDir string) Config {
	return Config{
		BaseDir:            baseDir,
		DefaultIndex:       IndexFlat,
		LSHPlanes:          12,
		HNSWM:              16,
		HNSWEf:             64,
		MaxOpenCollections: 32,
	}
}

// LoadConfigFile reads a YAML configuration file and overlays it on top
// of DefaultConfig(baseDir), so a file only needs to set the fields it
// wants to change.
func LoadConfigFile(path string, baseDir string) (Config, error) {
	cfg := DefaultConfig(baseDir)

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, WrapErr("load_config", KindPersistence, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, WrapErr("load_config", KindSerialization, fmt.Errorf("parse yaml: %w", err))
	}

	return cfg, nil
}
