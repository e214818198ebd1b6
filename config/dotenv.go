package config

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/go-envparse"
	"github.com/toolkits/pkg/file"
)

// LoadDotEnv exports the KEY=value pairs of envFile into the process
// environment. Variables that are already set win over the file. A missing
// file is not an error.
func LoadDotEnv(envFile string) error {
	if envFile == "" || !file.IsExist(envFile) {
		return nil
	}

	f, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open env file %s: %v", envFile, err)
	}
	defer f.Close()

	kvs, err := envparse.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse env file %s: %v", envFile, err)
	}

	for k, v := range kvs {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}

	log.Printf("I! loaded %d variables from %s", len(kvs), envFile)
	return nil
}
