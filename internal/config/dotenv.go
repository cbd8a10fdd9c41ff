package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DotenvFile is the file read from the configuration directory when
// dotenv is enabled.
const DotenvFile = ".env"

// ReadDotenv reads <dir>/.env.
func ReadDotenv(dir string) (map[string]string, error) {
	path := filepath.Join(dir, DotenvFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %w", ErrDotenv, err)}
	}
	env, err := ParseDotenv(string(data))
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%s: %w", path, err)}
	}
	return env, nil
}

// ParseDotenv parses KEY=VALUE lines. Blank lines and '#' comments are
// skipped; any other line without '=' is rejected with its 1-based line
// number.
func ParseDotenv(data string) (map[string]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !strings.Contains(text, "=") {
			return nil, fmt.Errorf("%w: line %d: expected KEY=VALUE", ErrDotenv, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDotenv, err)
	}

	env, err := godotenv.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDotenv, err)
	}
	return env, nil
}
