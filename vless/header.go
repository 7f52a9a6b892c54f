package vless

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"net"

	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/utils"
)

// 解码失败的具体原因. 认证失败和协议非法要区分开, 日志里要能看出是
// 爆破嫌疑 还是 客户端实现有bug.
var (
	ErrTooShort        = errors.New("vless header too short")
	ErrAuthMismatch    = errors.New("vless user id mismatch")
	ErrUnsupportedCmd  = errors.New("vless command not supported")
	ErrUnknownAddrType = errors.New("vless unknown address type")
	ErrMalformed       = errors.New("vless header malformed")
)

// Header 是解码出的请求头. 每个session只解码一次, 用完即弃.
type Header struct {
	Version byte
	UserID  [utils.UUID_BytesLen]byte
	Cmd     byte

	Addr netLayer.Addr

	// RawDataIndex 是原始buf中 地址字段之后 的偏移, 从这里开始的内容是
	// 要原样转发给目标的载荷, 可以为空.
	RawDataIndex int
}

// 1 version + 16 uuid + 1 addonLen
const minHeaderLen = 18

// DecodeHeader 对 首个数据块buf 解码出请求头, 同时校验 uuid 是否等于 allowedID.
//
// 校验失败时 绝不返回任何已解码的字段, 调用方拿到错误后 不可能误用半个头部.
func DecodeHeader(buf []byte, allowedID [utils.UUID_BytesLen]byte) (*Header, error) {

	if len(buf) < minHeaderLen {
		return nil, ErrTooShort
	}

	h := &Header{Version: buf[0]}
	copy(h.UserID[:], buf[1:17])

	//用常数时间比较, 防止通过时延探测出 正确uuid 的前缀
	if subtle.ConstantTimeCompare(h.UserID[:], allowedID[:]) != 1 {
		return nil, ErrAuthMismatch
	}

	//addon部分直接跳过; v2ray 的 EncodeBodyAddons 根本不写任何数据,
	// 正常客户端这里始终为0
	i := minHeaderLen + int(buf[17])

	// cmd + port + atyp
	if len(buf) < i+4 {
		return nil, ErrMalformed
	}

	h.Cmd = buf[i]
	switch h.Cmd {
	case CmdTCP, CmdUDP:
	default:
		return nil, ErrUnsupportedCmd
	}

	h.Addr.Network = "tcp"
	if h.Cmd == CmdUDP {
		h.Addr.Network = "udp"
	}

	h.Addr.Port = int(binary.BigEndian.Uint16(buf[i+1 : i+3]))

	atyp := buf[i+3]
	i += 4

	switch atyp {
	case netLayer.AtypIP4:
		if len(buf) < i+net.IPv4len {
			return nil, ErrMalformed
		}
		//必须拷贝, buf 是池化的, 解码完就会被复用
		h.Addr.IP = append(net.IP(nil), buf[i:i+net.IPv4len]...)
		i += net.IPv4len

	case netLayer.AtypDomain:
		if len(buf) < i+1 {
			return nil, ErrMalformed
		}
		domainLen := int(buf[i])
		i++
		if domainLen == 0 || len(buf) < i+domainLen {
			return nil, ErrMalformed
		}
		h.Addr.Name = string(buf[i : i+domainLen])
		i += domainLen

	case netLayer.AtypIP6:
		if len(buf) < i+net.IPv6len {
			return nil, ErrMalformed
		}
		h.Addr.IP = append(net.IP(nil), buf[i:i+net.IPv6len]...)
		i += net.IPv6len

	default:
		return nil, ErrUnknownAddrType
	}

	h.RawDataIndex = i
	return h, nil
}

// ResponseHeader 是回给客户端的2字节响应头: 原样回显的version + 0长度addon.
func ResponseHeader(version byte) []byte {
	return []byte{version, 0}
}

// EncodeHeader 编码一个请求头, 供客户端 以及 测试使用. payload 会被直接附在头部之后.
func EncodeHeader(version byte, id [utils.UUID_BytesLen]byte, cmd byte, addr netLayer.Addr, payload []byte) []byte {

	buf := utils.GetBuf()
	defer utils.PutBuf(buf)

	buf.WriteByte(version)
	buf.Write(id[:])
	buf.WriteByte(0) //addon len
	buf.WriteByte(cmd)
	buf.WriteByte(byte(addr.Port >> 8))
	buf.WriteByte(byte(addr.Port))

	atyp := addr.AtypByte()
	buf.WriteByte(atyp)
	switch atyp {
	case netLayer.AtypIP4:
		buf.Write(addr.IP.To4())
	case netLayer.AtypDomain:
		buf.WriteByte(byte(len(addr.Name)))
		buf.WriteString(addr.Name)
	case netLayer.AtypIP6:
		buf.Write(addr.IP.To16())
	}
	buf.Write(payload)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
