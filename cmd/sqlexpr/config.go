package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/sqlexpr"
)

// config is the contents of a -config file. Flags given on the command line
// take precedence over it.
//
//	precision: 128
//	given:
//	  rate: "0.25"
//	allow:
//	  variables: [amount, transactions, rate]
//	  functions: [abs, max]
//	  arity: {abs: 1}
//	sql:
//	  dialect: sqlite
//	  db: data.db
//	  table: Data
//	  columns: [amount, transactions]
type config struct {
	Precision uint               `yaml:"precision"`
	Given     map[string]string  `yaml:"given"`
	Allow     *sqlexpr.Allowlist `yaml:"allow"`
	SQL       sqlConfig          `yaml:"sql"`
}

type sqlConfig struct {
	Dialect   string         `yaml:"dialect"`
	DB        string         `yaml:"db"`
	Table     string         `yaml:"table"`
	Columns   []string       `yaml:"columns"`
	Functions map[string]int `yaml:"functions"`
}

func loadConfig(name string) (*config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg := new(config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", name)
	}
	return cfg, nil
}
