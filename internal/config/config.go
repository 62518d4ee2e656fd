package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "osm-fixsync.yaml"

const (
	envFixturesDir = "OSM_FIXSYNC_FIXTURES_DIR"
	envMirrorDir   = "OSM_FIXSYNC_MIRROR_DIR"
	envOsmiumPath  = "OSM_FIXSYNC_OSMIUM_PATH"
	envJobs        = "OSM_FIXSYNC_JOBS"
)

// Config 提供命令行未显式指定时的缺省值。
// 优先级：命令行 flag > 环境变量（含 .env）> osm-fixsync.yaml。
type Config struct {
	FixturesDir string `yaml:"fixtures_dir"`
	MirrorDir   string `yaml:"mirror_dir"`
	OsmiumPath  string `yaml:"osmium_path"`
	Jobs        int    `yaml:"jobs"`
}

func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 %s 失败：%w", ConfigFileName, err)
	}
	return &cfg, nil
}

// Resolve 合并 yaml 配置、.env 文件与环境变量，返回生效的缺省值。
// 两个文件都允许缺失；格式错误才报错。
func Resolve(dir string) (Config, error) {
	cfg := Config{}

	fileCfg, err := Load(dir)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return Config{}, err
	}
	if fileCfg != nil {
		cfg = *fileCfg
	}

	envPath := filepath.Join(dir, ".env")
	if _, statErr := os.Stat(envPath); statErr == nil {
		if loadErr := godotenv.Load(envPath); loadErr != nil {
			return Config{}, fmt.Errorf("加载 .env 失败：%w", loadErr)
		}
	}

	if v := strings.TrimSpace(os.Getenv(envFixturesDir)); v != "" {
		cfg.FixturesDir = v
	}
	if v := strings.TrimSpace(os.Getenv(envMirrorDir)); v != "" {
		cfg.MirrorDir = v
	}
	if v := strings.TrimSpace(os.Getenv(envOsmiumPath)); v != "" {
		cfg.OsmiumPath = v
	}
	if v := strings.TrimSpace(os.Getenv(envJobs)); v != "" {
		jobs, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Config{}, fmt.Errorf("%s 不是有效整数：%s", envJobs, v)
		}
		cfg.Jobs = jobs
	}
	return cfg, nil
}
