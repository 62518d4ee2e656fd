package input

// SourceItem 是源树下一个匹配到的 fixture 文件。
// RelPath 相对于被扫描的根目录；Packed 表示文件本身已是 .osm.pbf。
type SourceItem struct {
	SourcePath string
	RelPath    string
	Packed     bool
}
