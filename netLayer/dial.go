package netLayer

import (
	"net"
	"time"
)

// v2ray默认16秒，是不是太长了？？这里用15秒.
var DialTimeout = time.Second * 15

// Dial 建立到 addr 的tcp连接. 若配置了自定义dns服务器 且 addr 是域名形式,
// 则先用 miekg/dns 解析, 否则直接交给系统解析器.
//
// 只会拨号一次, 不重试; 客户端失败后会自行重连, 在这里重试只会放大故障.
func (addr *Addr) Dial() (net.Conn, error) {

	if addr.IP == nil && addr.Name != "" && HasCustomDNS() {
		ip, err := Resolve(addr.Name)
		if err != nil {
			return nil, err
		}
		resolved := &net.TCPAddr{IP: ip, Port: addr.Port}
		return net.DialTimeout("tcp", resolved.String(), DialTimeout)
	}

	return net.DialTimeout("tcp", addr.String(), DialTimeout)
}
