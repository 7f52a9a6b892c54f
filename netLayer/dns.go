package netLayer

import (
	"errors"
	"net"
	"time"

	"github.com/e1732a364fed/vlessws/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// 自定义dns服务器地址, "ip:53" 形式. 为空则使用系统解析.
// 只在启动时设置一次, 之后只读, 所以不需要锁.
var customDNSServer string

var ErrNoAnswer = errors.New("dns query got no answer")

func SetCustomDNS(serverAddr string) {
	customDNSServer = serverAddr
}

func HasCustomDNS() bool {
	return customDNSServer != ""
}

// Resolve 向配置的dns服务器查询 domain 的 A记录, 没有A记录时再尝试 AAAA.
func Resolve(domain string) (net.IP, error) {
	if ip, err := queryDNS(domain, dns.TypeA); err == nil {
		return ip, nil
	}
	return queryDNS(domain, dns.TypeAAAA)
}

func queryDNS(domain string, dnsType uint16) (net.IP, error) {
	c := dns.Client{Timeout: time.Second * 4}

	m := dns.Msg{}
	m.SetQuestion(dns.Fqdn(domain), dnsType)

	r, rtt, err := c.Exchange(&m, customDNSServer)
	if err != nil {
		return nil, err
	}
	if ce := utils.CanLogDebug("dns query"); ce != nil {
		ce.Write(zap.String("domain", domain), zap.Duration("rtt", rtt))
	}

	for _, ans := range r.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			return rr.A, nil
		case *dns.AAAA:
			return rr.AAAA, nil
		}
	}
	return nil, ErrNoAnswer
}
