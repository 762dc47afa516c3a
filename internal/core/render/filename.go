package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AvailableFilename は dir 内で未使用の出力パスを返します。
// {nationalID}_{badgeType}.{ext} が既に存在する場合は _2, _3, ... を付与します。
func AvailableFilename(dir, nationalID, badgeType, ext string) (string, error) {
	base := nationalID + "_" + badgeType
	for n := 1; ; n++ {
		name := base + "." + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d.%s", base, n, ext)
		}
		path := filepath.Join(dir, name)

		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("render: stat %s: %w", path, err)
		}
	}
}
