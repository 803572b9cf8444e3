// Package appconfig 内置的默认配置，命令行 --config 可以替换
package appconfig

import _ "embed"

//go:embed appconfig.json
var Default []byte
