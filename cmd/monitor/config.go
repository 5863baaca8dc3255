package main

import (
	"encoding/json"
	"flag"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/omeid/uconfig"
	"github.com/omeid/uconfig/plugins"
	"github.com/omeid/uconfig/plugins/file"
	"github.com/rs/zerolog/log"
)

// configFilename is the filename of the optional config file read from
// inside MONITOR_CONFIG_DIR, mirroring the teacher's single config.json
// convention.
var configFilename = "monitor.json"

type config struct {
	DataDir   string `default:"./data"   env:"MONITOR_DATA_DIR"`
	ConfigDir string `default:"./config" env:"MONITOR_CONFIG_DIR"`

	Log struct {
		Level string `default:"info" env:"RUST_LOG"`
		Human bool   `default:"false"`
	}

	RPCTimeoutSeconds int `default:"15"`
	FanOut            int `default:"32"`
}

func setupConfig() *config {
	_ = godotenv.Load()

	flagConfigDir := flag.String("config", "", "Directory containing networks/, monitors/, triggers.json (overrides MONITOR_CONFIG_DIR)")
	flag.Parse()

	conf := &config{}

	var ps []plugins.Plugin
	fullPath := path.Join(os.Getenv("MONITOR_CONFIG_DIR"), configFilename)
	if configFileBytes, err := os.ReadFile(fullPath); err == nil {
		fileStr := os.ExpandEnv(string(configFileBytes))
		ps = append(ps, file.NewReader(strings.NewReader(fileStr), json.Unmarshal))
	}

	c, err := uconfig.Classic(&conf, file.Files{}, ps...)
	if err != nil {
		c.Usage()
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if *flagConfigDir != "" {
		conf.ConfigDir = *flagConfigDir
	}

	return conf
}
