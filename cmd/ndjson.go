package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

type ndjsonEvent struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Event      string         `json:"event"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

func marshalNoHTMLEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func emitNDJSON(w io.Writer, level, event, message string, details map[string]any, suggestion string) {
	if w == nil {
		return
	}
	e := ndjsonEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Event:      event,
		Message:    message,
		Details:    details,
		Suggestion: suggestion,
	}
	buf, err := marshalNoHTMLEscape(e)
	if err != nil {
		fallback, _ := marshalNoHTMLEscape(ndjsonEvent{
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
			Level:      "error",
			Event:      "logger_error",
			Message:    "NDJSON 序列化失败",
			Details:    map[string]any{"reason": err.Error()},
			Suggestion: "检查日志字段是否包含无法序列化的数据结构",
		})
		_, _ = w.Write(append(fallback, '\n'))
		return
	}
	_, _ = w.Write(append(buf, '\n'))
}

func absPath(cwd, p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if strings.TrimSpace(cwd) == "" {
		if wd, err := filepath.Abs(p); err == nil {
			return filepath.Clean(wd)
		}
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(cwd, p))
}

func suggestionForFailure(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(reason, "压平文件名冲突"):
		return "上游两个不同目录的文件压平后同名；重命名其一或在上游整理目录后重试"
	case strings.Contains(reason, "osmium 转换失败"):
		return "建议先手工执行 osmium cat -f pbf 命令定位具体问题，再修复源文件后重试"
	case strings.Contains(reason, "创建输出目录失败") || strings.Contains(reason, "创建 src 目录失败"):
		return "检查 fixtures 目录权限，或切换到有写权限的目录后重试"
	case strings.Contains(lower, "permission denied"):
		return "检查文件读写权限，确保源文件可读、目标目录可写"
	default:
		return "检查错误详情与源文件内容；确认路径、权限和依赖环境后重试"
	}
}

func suggestionForTopError(errText string) string {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(errText, "缺少 libosmium 根目录"):
		return "传入 libosmium 检出目录，例如：osm-fixsync /abs/path/libosmium"
	case strings.Contains(errText, "源目录不存在"):
		return "确认传入的是 libosmium 仓库根目录（其下应有 test/ 子目录）"
	case strings.Contains(errText, "未找到 osmium"):
		switch runtime.GOOS {
		case "darwin":
			return "先执行 brew install osmium-tool；若已安装但不在 PATH，使用 --osmium-path 指定绝对路径"
		case "windows":
			return "先执行 conda install -c conda-forge osmium-tool；若 PATH 未生效，使用 --osmium-path"
		default:
			return "先执行 sudo apt-get install osmium-tool（或系统包管理器安装）；也可使用 --osmium-path 指定"
		}
	case strings.Contains(lower, "permission denied"):
		return "检查文件读写权限，确保源树可读、fixtures 目录可写"
	default:
		return "根据 details 中的错误信息逐项排查；优先检查路径、依赖和权限"
	}
}

func EmitUnhandledError(w io.Writer, err error) {
	if err == nil {
		return
	}
	emitNDJSON(w, "error", "fatal_error", "程序执行失败", map[string]any{
		"error": err.Error(),
	}, suggestionForTopError(err.Error()))
}
