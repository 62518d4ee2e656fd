package app

import (
	"osm-fixsync/internal/convert"
)

type Options struct {
	LibraryRoot    string
	FixturesDir    string
	MirrorDir      string
	OsmiumPath     string
	Jobs           int
	PreserveSource bool
	CWD            string
	Verbose        bool
	Converter      convert.Converter
}

type Failure struct {
	Source string
	Reason string
}

// Action 记录一个已完成的同步动作，供进度输出使用。
// Kind 为 "copy"（直接拷贝打包文件）或 "convert"（osmium 转换）。
type Action struct {
	Kind      string
	Source    string
	Target    string
	Preserved string
}

type Result struct {
	SuccessCount int
	FailureCount int
	WarningCount int
	Warnings     []string
	Failures     []Failure
	Actions      []Action
	TestRoot     string
	OsmiumPath   string
	OsmiumVer    string
}
