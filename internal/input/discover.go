package input

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const packedSuffix = ".osm.pbf"

var textualSuffixes = []string{".osm", ".osh"}

// Discover 递归枚举 root 下所有 OSM 测试数据文件（.osm / .osh / .osm.pbf）。
// root 不存在或不可读是致命错误；子目录扫描失败降级为告警并跳过。
// 不匹配的文件直接忽略：libosmium 测试目录里无关文件数以千计，逐个告警只会淹没输出。
func Discover(root string) ([]SourceItem, []string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("源目录不存在或不可访问：%s", root)
	}
	if !st.IsDir() {
		return nil, nil, fmt.Errorf("源路径不是目录：%s", root)
	}

	items := make([]SourceItem, 0)
	warns := make([]string, 0)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warns = append(warns, fmt.Sprintf("扫描失败（已跳过）：%s", path))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		packed, ok := matchSuffix(d.Name())
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			warns = append(warns, fmt.Sprintf("路径计算失败（已跳过）：%s", path))
			return nil
		}
		items = append(items, SourceItem{SourcePath: path, RelPath: rel, Packed: packed})
		return nil
	})
	if walkErr != nil {
		warns = append(warns, fmt.Sprintf("目录扫描异常：%s", root))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].SourcePath < items[j].SourcePath
	})
	sort.Strings(warns)
	return items, warns, nil
}

func matchSuffix(name string) (packed bool, ok bool) {
	if strings.HasSuffix(name, packedSuffix) {
		return true, true
	}
	for _, suffix := range textualSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false, true
		}
	}
	return false, false
}
