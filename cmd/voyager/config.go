package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	voyager "github.com/canbakiskan/voyager-go"
	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/quantization"
)

// BuildConfig is the YAML file read by the build command. Zero fields keep
// the library defaults.
type BuildConfig struct {
	Space           string `yaml:"space"`
	M               int    `yaml:"m"`
	EfConstruction  int    `yaml:"ef_construction"`
	RandomSeed      uint64 `yaml:"random_seed"`
	MaxElements     int    `yaml:"max_elements"`
	StorageDataType string `yaml:"storage_data_type"`
	Ef              int    `yaml:"ef"`
	// LabelColumn treats the first CSV column as the label.
	LabelColumn bool   `yaml:"label_column"`
	Compression string `yaml:"compression"`
	Threads     int    `yaml:"threads"`
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{
		Space:           "euclidean",
		StorageDataType: "float32",
		Compression:     "none",
		Threads:         -1,
	}
}

func loadBuildConfig(path string) (BuildConfig, error) {
	cfg := defaultBuildConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// indexOptions converts the config into a space and index options for n
// vectors.
func (c BuildConfig) indexOptions(n int) (distance.Space, []func(*voyager.Options), error) {
	space, err := distance.ParseSpace(c.Space)
	if err != nil {
		return 0, nil, err
	}
	dt, err := quantization.ParseDataType(c.StorageDataType)
	if err != nil {
		return 0, nil, err
	}

	opts := []func(*voyager.Options){
		voyager.WithStorageDataType(dt),
		voyager.WithMaxElements(max(c.MaxElements, n, 1)),
	}
	if c.M > 0 {
		opts = append(opts, voyager.WithM(c.M))
	}
	if c.EfConstruction > 0 {
		opts = append(opts, voyager.WithEfConstruction(c.EfConstruction))
	}
	if c.RandomSeed > 0 {
		opts = append(opts, voyager.WithRandomSeed(c.RandomSeed))
	}
	if c.Ef > 0 {
		opts = append(opts, voyager.WithEf(c.Ef))
	}
	return space, opts, nil
}
