// Package netLayer contains the transport-layer address type, outbound dialing
// and inbound listening helpers used by the relay.
package netLayer

import (
	"math/rand"
	"net"
	"strconv"
	"strings"

	"github.com/e1732a364fed/vlessws/utils"
)

// Atyp, 即 vless/vmess 标准的地址类型; 注意与 trojan和socks5的区别,
// trojan和socks5的相同含义的值是1，3，4
const (
	AtypIP4    byte = 1
	AtypDomain byte = 2
	AtypIP6    byte = 3
)

// Addr represents an address that the relay dials for a session. Either Name
// or IP is used exclusively.
// Addr 还可以用 Dial 方法直接进行拨号.
type Addr struct {
	Network string
	Name    string // domain name
	IP      net.IP
	Port    int
}

// NewAddr 解析 "host:port" 形式的字符串. host为ip时填充IP, 否则填充Name.
func NewAddr(addrStr string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(addrStr)
	if err != nil {
		return Addr{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, err
	}

	a := Addr{Network: "tcp", Port: port}
	if ip := net.ParseIP(host); ip != nil {
		a.IP = ip
	} else {
		a.Name = host
	}
	return a, nil
}

func (a *Addr) HostStr() string {
	if a.IP != nil {
		return a.IP.String()
	}
	return a.Name
}

func (a *Addr) String() string {
	return net.JoinHostPort(a.HostStr(), strconv.Itoa(a.Port))
}

// AtypByte 返回该地址在 vless 头部中的地址类型字节.
func (a *Addr) AtypByte() byte {
	if a.IP != nil {
		if a.IP.To4() != nil {
			return AtypIP4
		}
		return AtypIP6
	}
	return AtypDomain
}

func (a *Addr) IsIpv6() bool {
	return a.IP != nil && a.IP.To4() == nil && strings.Contains(a.IP.String(), ":")
}

// GetRandLocalAddr 返回一个 127.0.0.1:port 形式的随机监听地址, 测试时用.
func GetRandLocalAddr() string {
	return "127.0.0.1:" + RandPortStr()
}

func RandPortStr() string {
	return strconv.Itoa(RandPort(0))
}

// 用0 作为 depth 调用即可, depth 用于递归.
func RandPort(depth int) (p int) {
	p = rand.Intn(50000) + 4096

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{
		IP:   net.IPv4(0, 0, 0, 0),
		Port: p,
	})
	if listener != nil {
		listener.Close()
	}
	if err != nil {
		if ce := utils.CanLogDebug("Get RandPort got err, trying again"); ce != nil {
			ce.Write()
		}
		if depth < 20 {
			return RandPort(depth + 1)
		}
	}
	return
}
