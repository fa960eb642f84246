package config

import (
	domainConfig "github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Schema holds the path of the object schema TOML file
type Schema struct {
	path string
}

func (x *Schema) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "schema",
			Aliases:     []string{"c"},
			Usage:       "Object schema TOML file (roles, custom attributes, digest settings)",
			Sources:     cli.EnvVars("GRCBOOK_SCHEMA"),
			Destination: &x.path,
		},
	}
}

// Configure returns the built-in schema merged with the file, if one is set
func (x *Schema) Configure() (*domainConfig.Schema, error) {
	schema, err := LoadSchema(x.path)
	if err != nil {
		return nil, err
	}
	logging.Default().Info("Object schema loaded",
		"path", x.path,
		"roles", len(schema.Roles),
		"attributes", len(schema.Attributes)+len(schema.LocalAttributes),
	)
	return schema, nil
}
