package idgen

import (
	"strconv"
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// ========================================
// 位布局 (Bit Layout)
// ========================================
//
//	 63   62 ............ 22   21 .. 18   17 ..... 10   9 ...... 0
//	+---+---------------------+----------+-------------+------------+
//	| 0 |  timestamp (41 bit) | dc (4)   | worker (8)  | seq (10)   |
//	+---+---------------------+----------+-------------+------------+

const (
	// DefaultEpoch 2021-05-05T13:00:00Z，毫秒。同一部署内所有实例必须一致
	DefaultEpoch int64 = 1620219600000

	TimestampBits  = 41
	DatacenterBits = 4
	WorkerBits     = 8
	SequenceBits   = 10

	SequenceShift   = 0
	WorkerShift     = SequenceShift + SequenceBits
	DatacenterShift = WorkerShift + WorkerBits
	TimestampShift  = 22

	// MaxWorkers 工作节点标签的取值个数
	MaxWorkers = 1 << WorkerBits
	// MaxDatacenters 数据中心标签的取值个数
	MaxDatacenters = 1 << DatacenterBits
	// SequenceSpace 每毫秒可用的序列号个数，与 10 位序列号字段对齐
	SequenceSpace = 1 << SequenceBits
	// MaxSequence 单毫秒内最大序列号
	MaxSequence = SequenceSpace - 1

	timestampMask  = 1<<TimestampBits - 1
	datacenterMask = MaxDatacenters - 1
	workerMask     = MaxWorkers - 1
	sequenceMask   = SequenceSpace - 1
)

// ID 64 位雪花 ID，最高位恒为 0，可以无损转换为 int64
type ID uint64

// Compose 按位布局打包各字段，每个字段都先按宽度截断。
// 时间戳超过 41 位（自 DefaultEpoch 起约 2091 年）后会回绕，这里不做处理
func Compose(ts, datacenterID, workerID, seq int64) ID {
	return ID(uint64(ts)&timestampMask<<TimestampShift |
		uint64(datacenterID)&datacenterMask<<DatacenterShift |
		uint64(workerID)&workerMask<<WorkerShift |
		uint64(seq)&sequenceMask<<SequenceShift)
}

// Timestamp 相对 epoch 的毫秒数
func (id ID) Timestamp() int64 {
	return int64(uint64(id) >> TimestampShift & timestampMask)
}

func (id ID) DatacenterID() int64 {
	return int64(uint64(id) >> DatacenterShift & datacenterMask)
}

func (id ID) WorkerID() int64 {
	return int64(uint64(id) >> WorkerShift & workerMask)
}

func (id ID) Sequence() int64 {
	return int64(uint64(id) >> SequenceShift & sequenceMask)
}

// Time 返回 ID 编码的墙上时间（UTC），epoch 必须与生成时一致
func (id ID) Time(epoch int64) time.Time {
	return time.UnixMilli(epoch + id.Timestamp()).UTC()
}

// String 十进制表示，跨语言传递时使用，避免 53 位浮点精度丢失
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ID) Int64() int64 {
	return int64(id)
}

// Parse 解析十进制 ID。负数、溢出以及最高位为 1 的值都视为无效
func Parse(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, xerrors.Wrapf(xerrors.WithCode(ErrInvalidInput, "id_not_decimal"), "parse %q", s)
	}
	if v>>63 != 0 {
		return 0, xerrors.Wrapf(xerrors.WithCode(ErrInvalidInput, "id_sign_bit_set"), "parse %q", s)
	}
	return ID(v), nil
}

// Parts ID 拆解后的各字段
type Parts struct {
	ID           ID        `json:"id,string"`
	Timestamp    int64     `json:"timestamp"`
	DatacenterID int64     `json:"datacenter_id"`
	WorkerID     int64     `json:"worker_id"`
	Sequence     int64     `json:"sequence"`
	Time         time.Time `json:"time"`
}

// Decompose 拆解 ID，Time 按给定 epoch 还原
func Decompose(id ID, epoch int64) Parts {
	return Parts{
		ID:           id,
		Timestamp:    id.Timestamp(),
		DatacenterID: id.DatacenterID(),
		WorkerID:     id.WorkerID(),
		Sequence:     id.Sequence(),
		Time:         id.Time(epoch),
	}
}
