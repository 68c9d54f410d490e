package envutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFileType is returned when the file extension is not recognized.
var ErrUnknownFileType = errors.New("env file doesn't have a known file suffix")

// LoadEnvFile reads environment variables from a file and returns them as a
// map. The format is picked by extension:
//   - .env files are KEY=VALUE pairs, parsed by godotenv (comments, quoting,
//     and variable expansion included)
//   - .json files must carry an "env" object of string pairs
//   - .yml/.yaml files must carry an "env" mapping of string pairs
//
// Extension matching is case-insensitive. Anything else returns
// ErrUnknownFileType.
func LoadEnvFile(path string) (map[string]string, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(fileInfo.Name())

	switch {
	case strings.HasSuffix(name, ".env"):
		return loadEnvFile(path)
	case strings.HasSuffix(name, ".json"):
		return loadJSONFile(path)
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return loadYAMLFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, fileInfo.Name())
	}
}

func loadEnvFile(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// jsonEnvFile is the expected shape of a JSON env file:
//
//	{"env": {"LOG_LEVEL": "debug"}}
type jsonEnvFile struct {
	Env map[string]string `json:"env"`
}

func loadJSONFile(path string) (map[string]string, error) {
	bts, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	out := &jsonEnvFile{}

	err = json.Unmarshal(bts, &out)
	if err != nil {
		return nil, err
	}

	return out.Env, nil
}

// yamlEnvFile is the expected shape of a YAML env file:
//
//	env:
//	  LOG_LEVEL: debug
type yamlEnvFile struct {
	Env map[string]string `yaml:"env"`
}

func loadYAMLFile(path string) (map[string]string, error) {
	bts, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	env := &yamlEnvFile{}

	err = yaml.Unmarshal(bts, &env)
	if err != nil {
		return nil, err
	}

	return env.Env, nil
}
