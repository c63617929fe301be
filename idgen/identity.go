package idgen

import (
	"crypto/sha1"
	"encoding/hex"
	"net"
	"os"
	"strconv"

	"github.com/ceyewan/flake/xerrors"
)

// ========================================
// 节点身份 (Identity)
// ========================================

// Identity 生成器构造时确定的节点标签，之后不再变化
type Identity struct {
	WorkerID     int64  `json:"worker_id"`
	DatacenterID int64  `json:"datacenter_id"`
	Hostname     string `json:"hostname,omitempty"`
	Address      string `json:"address,omitempty"`
}

// IdentityProvider 提供主机名和网卡地址，测试中可替换
type IdentityProvider interface {
	Hostname() (string, error)
	// Addrs 按网卡枚举顺序返回地址
	Addrs() ([]net.Addr, error)
}

// HostIdentity 读取本机真实信息的 IdentityProvider
type HostIdentity struct{}

func (HostIdentity) Hostname() (string, error) {
	return os.Hostname()
}

func (HostIdentity) Addrs() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var addrs []net.Addr
	for _, iface := range ifaces {
		ifaddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addrs = append(addrs, ifaddrs...)
	}
	return addrs, nil
}

// WorkerTag 由主机名推导工作节点标签：SHA-1 十六进制摘要的末 6 位，对 256 取模
func WorkerTag(hostname string) int64 {
	return hashTag(hostname, 6, MaxWorkers)
}

// DatacenterTag 由 IPv4 地址推导数据中心标签：SHA-1 十六进制摘要的末 4 位，对 16 取模
func DatacenterTag(addr string) int64 {
	return hashTag(addr, 4, MaxDatacenters)
}

func hashTag(s string, digits int, mod int64) int64 {
	sum := sha1.Sum([]byte(s))
	digest := hex.EncodeToString(sum[:])
	// 十六进制字符必然可解析
	v, _ := strconv.ParseInt(digest[len(digest)-digits:], 16, 64)
	return v % mod
}

// ResolveIdentity 读取主机名与第一个非回环 IPv4 地址并推导两个标签。
// 找不到合格地址时返回 ErrNoAddressFound，不做任何兜底
func ResolveIdentity(p IdentityProvider) (Identity, error) {
	if p == nil {
		p = HostIdentity{}
	}

	hostname, err := p.Hostname()
	if err != nil {
		return Identity{}, xerrors.Wrap(xerrors.Join(ErrIdentity, err), "read hostname")
	}

	addrs, err := p.Addrs()
	if err != nil {
		return Identity{}, xerrors.Wrap(xerrors.Join(ErrIdentity, err), "list interface addresses")
	}

	ip := firstIPv4(addrs)
	if ip == nil {
		return Identity{}, ErrNoAddressFound
	}

	address := ip.String()
	return Identity{
		WorkerID:     WorkerTag(hostname),
		DatacenterID: DatacenterTag(address),
		Hostname:     hostname,
		Address:      address,
	}, nil
}

// firstIPv4 按枚举顺序返回第一个非回环 IPv4
func firstIPv4(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if ip.IsLoopback() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}
