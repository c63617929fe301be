package idgen

import "github.com/ceyewan/flake/xerrors"

var (
	// ErrNoAddressFound 本机没有可用的非回环 IPv4 地址，无法推导数据中心标签。
	// 构造期致命错误，生成器不会被创建
	ErrNoAddressFound = xerrors.New("idgen: no non-loopback ipv4 address found")

	// ErrIdentity 主机名或网卡信息读取失败
	ErrIdentity = xerrors.New("idgen: resolve identity failed")

	// ErrPersistence LastIDStore 写入失败。随错误一起返回的 ID 仍然有效
	ErrPersistence = xerrors.New("idgen: persist last id failed")

	// ErrInvalidInput 无效的配置或参数
	ErrInvalidInput = xerrors.WithCode(xerrors.ErrInvalidInput, "IDGEN_INVALID")
)
