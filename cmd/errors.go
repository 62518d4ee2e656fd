package cmd

import "errors"

var errSyncFailed = errors.New("存在同步失败项")
var errUsage = errors.New("参数数量错误")

func IsReportedError(err error) bool {
	return errors.Is(err, errSyncFailed) || errors.Is(err, errUsage)
}
