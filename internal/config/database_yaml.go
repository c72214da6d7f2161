package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// databaseURLFromYAML reads the per-environment connection URI from a
// database.yaml file of the form:
//
//	development:
//	  uri: postgres://localhost:5432/docharbor_development
//	production:
//	  uri: ${DATABASE_URL}
//
// ${VAR} references are expanded from the environment. A missing file is not
// an error; it just yields an empty URI.
func databaseURLFromYAML(path, env string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var doc map[string]struct {
		URI string `yaml:"uri"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	uri := doc[env].URI
	return envPattern.ReplaceAllStringFunc(uri, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	}), nil
}
