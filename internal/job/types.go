package job

// Task 描述一个待同步的 fixture 文件。
// Packed 为 true 时直接字节拷贝到 TargetPath；否则先（可选）把原件
// 保留到 PreservePath，再用 osmium 转换出 TargetPath。
type Task struct {
	SourcePath   string
	TargetPath   string
	PreservePath string
	Packed       bool
}

type Result struct {
	Task     Task
	Warnings []string
	Error    error
}
