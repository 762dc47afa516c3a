package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const defaultConfigPath = "assets/local.yaml"

// LoadEnv はカレントディレクトリの .env を環境変数に読み込みます。ファイルが無い場合は何もしません。
// 既に設定されている環境変数は上書きしません。
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("app: load %s: %w", p, err)
		}
	}
	return nil
}

// ConfigPath は flag、CONFIG_PATH、既定値の順に設定ファイルのパスを決めます。
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}
