package lastid

import "github.com/ceyewan/flake/xerrors"

var (
	// ErrNotFound 存储中还没有任何值
	ErrNotFound = xerrors.Wrap(xerrors.ErrNotFound, "lastid: no value stored")

	// ErrCorrupt 存储中的值不是合法的十进制 ID
	ErrCorrupt = xerrors.New("lastid: stored value is not a decimal id")

	// ErrNotSupported 驱动不支持该操作（例如 Kafka 的 Read）
	ErrNotSupported = xerrors.Wrap(xerrors.ErrNotSupported, "lastid")

	// ErrConnectorNil 网络型驱动缺少连接器，或连接器尚未 Connect
	ErrConnectorNil = xerrors.New("lastid: connector is nil or not connected")

	// ErrCircuitOpen 后端持续失败，熔断器拒绝写入
	ErrCircuitOpen = xerrors.Wrap(xerrors.ErrUnavailable, "lastid: circuit open")

	// ErrInvalidInput 无效的配置
	ErrInvalidInput = xerrors.WithCode(xerrors.ErrInvalidInput, "LASTID_INVALID")
)

func unsupportedDriver(driver string) error {
	return xerrors.Wrapf(xerrors.WithCode(ErrInvalidInput, "unsupported_driver"), "driver %q", driver)
}
