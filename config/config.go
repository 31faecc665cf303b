package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/nrsim/simtools/util"
)

// Default well known path, overridden by SIMTOOLS_CONFIG_PATH
const DefaultPath = "/etc/simtools/config.toml"

// See example_config.toml
type Config struct {
	Bins struct {
		Rsync  string `toml:"rsync"`
		Mpirun string `toml:"mpirun"`
		Srun   string `toml:"srun"`
		Sbatch string `toml:"sbatch"`
		Bash   string `toml:"bash"`
	} `toml:"bins"`
	Files struct {
		Hosts  string `toml:"hosts"`
		Filter string `toml:"filter"`
	} `toml:"files"`
	Run struct {
		OutputRoot string `toml:"output_root"`
		LogFile    string `toml:"log_file"`
		EnvVar     string `toml:"env_var"`
	} `toml:"run"`
	Runs struct {
		Host string `toml:"host"`
	} `toml:"runs"`
}

var conf *Config

// Default returns the configuration used when no config file is present.
func Default() *Config {
	var c Config
	c.Bins.Rsync = "rsync"
	c.Bins.Mpirun = "mpirun"
	c.Bins.Srun = "srun"
	c.Bins.Sbatch = "sbatch"
	c.Bins.Bash = "bash"
	c.Files.Hosts = "/etc/simtools/hosts.json"
	c.Files.Filter = "/etc/simtools/include.txt"
	c.Run.OutputRoot = "simulations"
	c.Run.LogFile = "stdout.txt"
	c.Run.EnvVar = "SIMRUN_ENV"
	c.Runs.Host = "127.0.0.1:8420"
	return &c
}

// Load decodes the TOML file at path on top of the defaults.
// Keys absent from the file keep their default value.
func Load(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("failed to decode config (%s): %w", path, err)
	}
	return c, nil
}

func GetConfig() *Config {
	if conf != nil {
		// Already loaded
		return conf
	}

	configPath := os.Getenv("SIMTOOLS_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultPath
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			conf = Default()
			return conf
		}
	}
	c, err := Load(configPath)
	if err != nil {
		util.Die("%v", err)
	}
	conf = c
	return conf
}
