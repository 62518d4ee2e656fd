package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"osm-fixsync/internal/input"
	"osm-fixsync/internal/job"
)

// SourceDirName 是保留原始文本 fixture 的子目录名。
const SourceDirName = "src"

type Options struct {
	DestRoot       string
	PreserveSource bool
}

type Failure struct {
	Source string
	Reason string
}

// Flatten 把相对路径压平成单个文件名：目录分隔符替换为下划线后与
// 文件名用下划线连接；根目录下的文件名保持不变。
// 纯函数，输入相同输出必然相同。
func Flatten(rel string) string {
	rel = filepath.ToSlash(rel)
	dir, name := "", rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		dir, name = rel[:idx], rel[idx+1:]
	}
	if dir == "" || dir == "." {
		return name
	}
	return strings.ReplaceAll(dir, "/", "_") + "_" + name
}

// ConvertedName 给出文本 fixture 转换后的目标文件名：
// a_b_f.osm -> a_b_f-gen.osm.pbf，f.osh -> f-gen.osh.pbf。
func ConvertedName(flat string) string {
	ext := filepath.Ext(flat)
	return strings.TrimSuffix(flat, ext) + "-gen" + ext + ".pbf"
}

// BuildTargets 为一个目标目录生成同步任务。
// 已打包的 .osm.pbf 直接拷贝到根；文本文件在保留模式下先进 src/ 再转换，
// 非保留模式只转换。压平后同名的后来者判定为冲突，报失败而不是静默覆盖。
func BuildTargets(sources []input.SourceItem, opts Options) ([]job.Task, []Failure) {
	if len(sources) == 0 {
		return nil, nil
	}

	tasks := make([]job.Task, 0, len(sources))
	fails := make([]Failure, 0)
	used := make(map[string]string, len(sources))

	for _, src := range sources {
		flat := Flatten(src.RelPath)
		if prev, ok := used[flat]; ok {
			fails = append(fails, Failure{
				Source: src.SourcePath,
				Reason: fmt.Sprintf("压平文件名冲突：%s 与 %s 同为 %s", src.RelPath, prev, flat),
			})
			continue
		}
		used[flat] = src.RelPath

		if src.Packed {
			tasks = append(tasks, job.Task{
				SourcePath: src.SourcePath,
				TargetPath: filepath.Join(opts.DestRoot, flat),
				Packed:     true,
			})
			continue
		}

		task := job.Task{
			SourcePath: src.SourcePath,
			TargetPath: filepath.Join(opts.DestRoot, ConvertedName(flat)),
		}
		if opts.PreserveSource {
			task.PreservePath = filepath.Join(opts.DestRoot, SourceDirName, flat)
		}
		tasks = append(tasks, task)
	}
	return tasks, fails
}
