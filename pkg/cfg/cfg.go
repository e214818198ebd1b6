package cfg

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/koding/multiconfig"
	"github.com/toolkits/pkg/file"
)

// LoadConfigs fills configPtr from the struct tag defaults, the environment
// and then every toml/json/yaml file under configDir, in name order. Later
// loaders override earlier ones.
func LoadConfigs(configDir string, configPtr interface{}) error {
	loaders := []multiconfig.Loader{
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{},
	}

	files, err := file.FilesUnder(configDir)
	if err != nil {
		return fmt.Errorf("failed to list files under: %s : %v", configDir, err)
	}
	sort.Strings(files)

	for _, fpath := range files {
		if loader := fileLoader(path.Join(configDir, fpath)); loader != nil {
			loaders = append(loaders, loader)
		}
	}

	m := multiconfig.DefaultLoader{
		Loader:    multiconfig.MultiLoader(loaders...),
		Validator: multiconfig.MultiValidator(&multiconfig.RequiredValidator{}),
	}

	return m.Load(configPtr)
}

func fileLoader(fpath string) multiconfig.Loader {
	switch {
	case strings.HasSuffix(fpath, ".toml"):
		return &multiconfig.TOMLLoader{Path: fpath}
	case strings.HasSuffix(fpath, ".json"):
		return &multiconfig.JSONLoader{Path: fpath}
	case strings.HasSuffix(fpath, ".yaml"), strings.HasSuffix(fpath, ".yml"):
		return &multiconfig.YAMLLoader{Path: fpath}
	}
	return nil
}
