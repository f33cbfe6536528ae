package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Config struct {
	Path string
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".yaml", ".yml", ".json":
		return nil
	default:
		return fmt.Errorf("snapshot must be a .yaml, .yml or .json file")
	}
}

func (c *Config) GetType() string {
	return "file"
}
