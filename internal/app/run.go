package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"osm-fixsync/internal/convert"
	"osm-fixsync/internal/input"
	"osm-fixsync/internal/job"
	"osm-fixsync/internal/plan"
	"osm-fixsync/internal/runner"
)

// DefaultFixturesDir 是原脚本固定写死的目标目录，这里作为可覆盖的缺省值。
const DefaultFixturesDir = "tests/fixtures/libosmium"

// TestDirName 是 libosmium 仓库里存放测试数据的子目录。
const TestDirName = "test"

func Run(opts Options) (Result, error) {
	if strings.TrimSpace(opts.LibraryRoot) == "" {
		return Result{}, fmt.Errorf("缺少 libosmium 根目录")
	}

	cwd := strings.TrimSpace(opts.CWD)
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Result{}, fmt.Errorf("读取当前目录失败：%w", err)
		}
		cwd = wd
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs < 1 {
		jobs = 1
	}

	testRoot := filepath.Join(absPath(cwd, opts.LibraryRoot), TestDirName)
	fixturesDir := strings.TrimSpace(opts.FixturesDir)
	if fixturesDir == "" {
		fixturesDir = DefaultFixturesDir
	}
	fixturesDir = absPath(cwd, fixturesDir)

	sources, discoverWarns, err := input.Discover(testRoot)
	if err != nil {
		return Result{}, err
	}

	tasks, planFails := plan.BuildTargets(sources, plan.Options{
		DestRoot:       fixturesDir,
		PreserveSource: opts.PreserveSource,
	})
	if err := ensureDestDirs(fixturesDir, opts.PreserveSource); err != nil {
		return Result{}, err
	}

	if mirror := strings.TrimSpace(opts.MirrorDir); mirror != "" {
		mirror = absPath(cwd, mirror)
		mirrorTasks, mirrorFails := plan.BuildTargets(sources, plan.Options{
			DestRoot:       mirror,
			PreserveSource: false,
		})
		tasks = append(tasks, mirrorTasks...)
		planFails = append(planFails, mirrorFails...)
		if err := ensureDestDirs(mirror, false); err != nil {
			return Result{}, err
		}
	}

	conv := opts.Converter
	osmiumInfo := convert.OsmiumInfo{}
	if conv == nil {
		// 只有存在转换任务时才要求 osmium 在场，纯拷贝无此依赖。
		if needsConversion(tasks) {
			info, err := convert.EnsureOsmiumAvailable(opts.OsmiumPath)
			if err != nil {
				return Result{}, err
			}
			osmiumInfo = info
		}
		conv = convert.NewOsmiumConverter(opts.OsmiumPath, opts.Verbose)
	}

	summary := runner.Run(context.Background(), jobs, tasks, conv)

	result := Result{
		SuccessCount: summary.SuccessCount,
		Warnings:     make([]string, 0),
		Failures:     make([]Failure, 0),
		Actions:      make([]Action, 0),
		TestRoot:     testRoot,
		OsmiumPath:   osmiumInfo.BinaryPath,
		OsmiumVer:    osmiumInfo.Version,
	}
	result.Warnings = append(result.Warnings, discoverWarns...)

	for _, f := range planFails {
		result.Failures = append(result.Failures, Failure{Source: f.Source, Reason: f.Reason})
	}
	for _, item := range summary.Results {
		result.Warnings = append(result.Warnings, item.Warnings...)
		if item.Error != nil {
			result.Failures = append(result.Failures, Failure{Source: item.Task.SourcePath, Reason: item.Error.Error()})
			continue
		}
		kind := "convert"
		if item.Task.Packed {
			kind = "copy"
		}
		result.Actions = append(result.Actions, Action{
			Kind:      kind,
			Source:    item.Task.SourcePath,
			Target:    item.Task.TargetPath,
			Preserved: item.Task.PreservePath,
		})
	}

	if len(sources) == 0 {
		result.Warnings = append(result.Warnings, "未发现可同步的 OSM 测试数据文件")
	}

	result.FailureCount = len(result.Failures)
	result.WarningCount = len(result.Warnings)
	return result, nil
}

func needsConversion(tasks []job.Task) bool {
	for _, t := range tasks {
		if !t.Packed {
			return true
		}
	}
	return false
}

func ensureDestDirs(destRoot string, preserve bool) error {
	dir := destRoot
	if preserve {
		dir = filepath.Join(destRoot, plan.SourceDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败：%w", err)
	}
	return nil
}

func absPath(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(cwd, p))
}
