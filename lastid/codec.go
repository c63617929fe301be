package lastid

import (
	"strconv"

	"github.com/ceyewan/flake/xerrors"
)

func encode(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// decode 只接受纯十进制数字，不做 trim
func decode(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, xerrors.Wrapf(ErrCorrupt, "value %q", s)
	}
	return v, nil
}
