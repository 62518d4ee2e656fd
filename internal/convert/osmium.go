package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"osm-fixsync/internal/job"
)

var execCommandContext = exec.CommandContext
var execLookPath = exec.LookPath

type OsmiumInfo struct {
	BinaryPath string
	Version    string
}

type OsmiumConverter struct {
	OsmiumPath string
	Verbose    bool
}

func NewOsmiumConverter(osmiumPath string, verbose bool) *OsmiumConverter {
	return &OsmiumConverter{
		OsmiumPath: osmiumPath,
		Verbose:    verbose,
	}
}

func EnsureOsmiumAvailable(osmiumPath string) (OsmiumInfo, error) {
	bin := strings.TrimSpace(osmiumPath)
	if bin == "" {
		bin = "osmium"
	}
	resolved, err := execLookPath(bin)
	if err != nil {
		return OsmiumInfo{}, fmt.Errorf("未找到 osmium（%s）。%s；也可使用 --osmium-path 指定路径", bin, installHint(runtime.GOOS))
	}

	version, err := detectOsmiumVersion(resolved)
	if err != nil {
		// 版本解析失败不阻断运行，保证跨版本兼容性。
		version = ""
	}
	return OsmiumInfo{BinaryPath: resolved, Version: version}, nil
}

// Convert 执行一个同步任务。已打包的文件直接覆盖拷贝；
// 文本文件先保留原件（若计划要求），再调用 osmium cat 产出 pbf，
// 并检查其退出码——转换失败必须暴露而不是静默吞掉。
func (o *OsmiumConverter) Convert(ctx context.Context, task job.Task) job.Result {
	res := job.Result{Task: task, Warnings: make([]string, 0)}
	if err := os.MkdirAll(filepath.Dir(task.TargetPath), 0o755); err != nil {
		res.Error = fmt.Errorf("创建输出目录失败：%w", err)
		return res
	}

	if task.Packed {
		if err := copyFile(task.SourcePath, task.TargetPath); err != nil {
			res.Error = fmt.Errorf("拷贝打包文件失败：%w", err)
		}
		return res
	}

	if task.PreservePath != "" {
		if err := os.MkdirAll(filepath.Dir(task.PreservePath), 0o755); err != nil {
			res.Error = fmt.Errorf("创建 src 目录失败：%w", err)
			return res
		}
		if err := copyFile(task.SourcePath, task.PreservePath); err != nil {
			res.Error = fmt.Errorf("保留原始文件失败：%w", err)
			return res
		}
	}

	bin := strings.TrimSpace(o.OsmiumPath)
	if bin == "" {
		bin = "osmium"
	}

	args := []string{"cat", "-f", "pbf", "-O", "-o", task.TargetPath, task.SourcePath}
	cmd := execCommandContext(ctx, bin, args...)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr
	if o.Verbose {
		cmd.Stdout = os.Stdout
	}

	err := cmd.Run()
	stderrText := strings.TrimSpace(stderr.String())
	res.Warnings = append(res.Warnings, collectWarnings(stderrText)...)

	if err != nil {
		reason := stderrText
		if reason == "" {
			reason = err.Error()
		}
		res.Error = fmt.Errorf("osmium 转换失败：%s", reason)
	}
	return res
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func collectWarnings(stderrText string) []string {
	if strings.TrimSpace(stderrText) == "" {
		return nil
	}
	lines := strings.Split(stderrText, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(strings.ToLower(line), "warning") {
			out = append(out, line)
		}
	}
	return out
}

func detectOsmiumVersion(binPath string) (string, error) {
	cmd := execCommandContext(context.Background(), binPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("执行 osmium --version 失败：%w", err)
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if line == "" {
		return "", fmt.Errorf("读取 osmium 版本失败：输出为空")
	}
	ver, ok := extractVersionToken(line)
	if !ok {
		return "", fmt.Errorf("无法识别 osmium 版本：%s", line)
	}
	return ver, nil
}

// extractVersionToken 从 "osmium version 1.16.0" 一类的首行里取出版本号。
func extractVersionToken(line string) (string, bool) {
	for _, field := range strings.Fields(line) {
		raw := strings.TrimPrefix(field, "v")
		parts := strings.Split(raw, ".")
		if len(parts) < 2 {
			continue
		}
		if !isDigits(parts[0]) || !isDigits(parts[1]) {
			continue
		}
		if len(parts) == 2 {
			return parts[0] + "." + parts[1] + ".0", true
		}
		patch := leadingDigits(parts[2])
		if patch == "" {
			continue
		}
		return parts[0] + "." + parts[1] + "." + patch, true
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func leadingDigits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func installHint(goos string) string {
	switch goos {
	case "darwin":
		return "可执行：brew install osmium-tool"
	case "windows":
		return "可执行：conda install -c conda-forge osmium-tool"
	default:
		return "可执行：sudo apt-get install osmium-tool（或使用系统包管理器安装）"
	}
}
