package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"osm-fixsync/internal/app"
	"osm-fixsync/internal/config"
)

const usageLine = "用法：osm-fixsync <libosmium_root_dir>"

type syncFlags struct {
	fixturesDir string
	mirrorDir   string
	noPreserve  bool
	osmiumPath  string
	jobs        int
	verbose     bool
}

func Execute() error {
	root := NewRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(normalizeArgs(os.Args[1:]))
	return root.Execute()
}

func NewRootCmd(stdout io.Writer, stderr io.Writer) *cobra.Command {
	flags := &syncFlags{}
	showVersion := false

	root := &cobra.Command{
		Use:           "osm-fixsync <libosmium_root_dir>",
		Short:         "同步 libosmium 测试数据到本地 fixtures 目录",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runSync(stdout, stderr, flags, false, &showVersion),
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.HiddenDefaultCmd = true
	bindSyncFlags(root, flags)
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "显示版本信息")

	syncCmd := &cobra.Command{
		Use:           "sync <libosmium_root_dir>",
		Short:         "执行 fixture 同步与 pbf 转换",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSync(stdout, stderr, flags, true, &showVersion),
	}
	root.AddCommand(syncCmd)

	versionCmd := &cobra.Command{
		Use:           "version",
		Short:         "显示版本信息",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(stdout)
		},
	}
	root.AddCommand(versionCmd)
	return root
}

func bindSyncFlags(cmd *cobra.Command, flags *syncFlags) {
	cmd.PersistentFlags().StringVarP(&flags.fixturesDir, "fixtures-dir", "o", "", "fixtures 输出目录（缺省 "+app.DefaultFixturesDir+"）")
	cmd.PersistentFlags().StringVar(&flags.mirrorDir, "mirror-dir", "", "第二输出目录，仅转换、不保留原件")
	cmd.PersistentFlags().BoolVar(&flags.noPreserve, "no-preserve", false, "不把文本原件保留到 src/ 子目录")
	cmd.PersistentFlags().StringVar(&flags.osmiumPath, "osmium-path", "", "osmium 可执行文件路径")
	cmd.PersistentFlags().IntVarP(&flags.jobs, "jobs", "j", 0, "并发任务数（缺省为 CPU 数）")
	cmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "输出详细日志")
}

func runSync(stdout io.Writer, stderr io.Writer, flags *syncFlags, subcommand bool, showVersion *bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if showVersion != nil && *showVersion {
			printVersion(stdout)
			return nil
		}
		if len(args) != 1 {
			if subcommand && len(args) == 0 {
				_ = cmd.Help()
				return errUsage
			}
			emitNDJSON(stderr, "error", "invalid_input", usageLine, map[string]any{
				"arg_count": len(args),
			}, "只传入一个参数：libosmium 检出目录的路径")
			return errUsage
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("读取当前目录失败：%w", err)
		}

		cfg, err := config.Resolve(cwd)
		if err != nil {
			return err
		}
		applyConfigDefaults(flags, cfg)

		res, err := app.Run(app.Options{
			LibraryRoot:    args[0],
			FixturesDir:    flags.fixturesDir,
			MirrorDir:      flags.mirrorDir,
			OsmiumPath:     flags.osmiumPath,
			Jobs:           flags.jobs,
			PreserveSource: !flags.noPreserve,
			CWD:            cwd,
			Verbose:        flags.verbose,
		})
		if err != nil {
			return err
		}

		if flags.verbose && res.OsmiumPath != "" {
			emitNDJSON(stdout, "info", "osmium_environment", "osmium 环境", map[string]any{
				"osmium_path":    res.OsmiumPath,
				"osmium_version": res.OsmiumVer,
			}, "")
		}

		for _, action := range res.Actions {
			emitAction(stdout, action)
		}
		for _, w := range res.Warnings {
			emitNDJSON(stderr, "warn", "sync_warning", w, nil, "")
		}
		for _, f := range res.Failures {
			emitNDJSON(stderr, "error", "file_failed", "同步失败", map[string]any{
				"source": f.Source,
				"reason": f.Reason,
			}, suggestionForFailure(f.Reason))
		}

		details := map[string]any{
			"success_count": res.SuccessCount,
			"failure_count": res.FailureCount,
			"warning_count": res.WarningCount,
			"test_root":     absPath(cwd, res.TestRoot),
		}
		suggestion := ""
		if res.FailureCount > 0 {
			suggestion = "修复失败项后重试；详情见 file_failed 事件"
			if res.OsmiumPath != "" {
				details["osmium_path"] = res.OsmiumPath
			}
		}
		emitNDJSON(stdout, "info", "summary", "同步完成", details, suggestion)

		if res.FailureCount > 0 {
			return errSyncFailed
		}
		return nil
	}
}

func emitAction(stdout io.Writer, action app.Action) {
	details := map[string]any{
		"source": action.Source,
		"target": action.Target,
	}
	if action.Preserved != "" {
		details["preserved"] = action.Preserved
	}
	if action.Kind == "copy" {
		emitNDJSON(stdout, "info", "file_copied", "已拷贝打包文件", details, "")
		return
	}
	emitNDJSON(stdout, "info", "file_converted", "已转换为 pbf", details, "")
}

func applyConfigDefaults(flags *syncFlags, cfg config.Config) {
	if strings.TrimSpace(flags.fixturesDir) == "" {
		flags.fixturesDir = cfg.FixturesDir
	}
	if strings.TrimSpace(flags.mirrorDir) == "" {
		flags.mirrorDir = cfg.MirrorDir
	}
	if strings.TrimSpace(flags.osmiumPath) == "" {
		flags.osmiumPath = cfg.OsmiumPath
	}
	if flags.jobs <= 0 {
		flags.jobs = cfg.Jobs
	}
}

func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	switch first {
	case "sync", "help", "completion", "version":
		return args
	}
	if first == "-h" || first == "--help" || first == "-v" || first == "--version" {
		return args
	}
	if !containsPositionalInput(args) {
		return args
	}
	return append([]string{"sync"}, args...)
}

func containsPositionalInput(args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return i+1 < len(args)
		}
		if arg == "--fixtures-dir" || arg == "-o" || arg == "--mirror-dir" || arg == "--osmium-path" || arg == "--jobs" || arg == "-j" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "--fixtures-dir=") || strings.HasPrefix(arg, "--mirror-dir=") || strings.HasPrefix(arg, "--osmium-path=") || strings.HasPrefix(arg, "--jobs=") {
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		return true
	}
	return false
}
