package sfs

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envVarPrefix = "SFS"

// FormatConfig is the format subcommand's tunable surface: a YAML file
// layered under environment variables, which are themselves layered under
// whatever the CLI's own flags set explicitly. It is consumed only by the
// CLI layer (see cmd/sfs); the core never reads the environment.
type FormatConfig struct {
	BlockSize    uint32 `envconfig:"SFS_BLOCKSIZE"     yaml:"blockSize"`
	TotalBlocks  uint32 `envconfig:"SFS_TOTALBLOCKS"   yaml:"totalBlocks"`
	NumOpenFiles uint32 `envconfig:"SFS_NUMOPENFILES"  yaml:"numOpenFiles"`
}

func defaultFormatConfig() FormatConfig {
	return FormatConfig{
		BlockSize:    DefaultBlockSize,
		TotalBlocks:  DefaultTotalBlocks,
		NumOpenFiles: DefaultNumOpenFiles,
	}
}

// LoadFormatConfig reads configFile (if non-empty and present) over the
// built-in defaults, then applies SFS_-prefixed environment overrides.
func LoadFormatConfig(configFile string) (FormatConfig, error) {
	c := defaultFormatConfig()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return FormatConfig{}, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return FormatConfig{}, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return FormatConfig{}, fmt.Errorf("parsing environment variables: %w", err)
	}

	return c, nil
}

// Validate rejects format parameters the on-disk layout cannot represent.
func (c FormatConfig) Validate() error {
	if c.BlockSize == 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block size must be a power of two; got %d", c.BlockSize)
	}
	if c.TotalBlocks == 0 {
		return fmt.Errorf("total blocks must be positive")
	}
	if uint64(c.TotalBlocks) > uint64(c.BlockSize)*8 {
		return fmt.Errorf(
			"total blocks (%d) exceeds what a single %d-byte bitmap block can address (%d)",
			c.TotalBlocks, c.BlockSize, uint64(c.BlockSize)*8,
		)
	}
	return nil
}

func (c FormatConfig) Params() FormatParams {
	return FormatParams{
		BlockSize:    c.BlockSize,
		TotalBlocks:  c.TotalBlocks,
		NumOpenFiles: c.NumOpenFiles,
	}
}
