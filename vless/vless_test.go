package vless_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/e1732a364fed/vlessws/vless"
)

const testUUIDStr = "a684455c-b14f-11ea-bf0d-42010aaa0003"

func testID(t *testing.T) [16]byte {
	id, err := utils.StrToUUID(testUUIDStr)
	if err != nil {
		t.Log("bad test uuid", err)
		t.FailNow()
	}
	return id
}

// 三种地址类型都要能 编码->解码 还原出同样的 host和port,
// 且 RawDataIndex 恰好指向地址字段之后.
func TestDecodeHeader(t *testing.T) {
	id := testID(t)
	payload := []byte("GET / HTTP/1.0\r\n\r\n")

	addrs := []netLayer.Addr{
		{IP: net.IPv4(1, 2, 3, 4), Port: 80},
		{Name: "example.com", Port: 443},
		{IP: net.ParseIP("2001:db8::68"), Port: 8080},
	}

	for _, a := range addrs {
		buf := vless.EncodeHeader(0, id, vless.CmdTCP, a, payload)

		h, err := vless.DecodeHeader(buf, id)
		if err != nil {
			t.Log("decode failed", a.String(), err)
			t.FailNow()
		}
		if h.Version != 0 || h.Cmd != vless.CmdTCP {
			t.Log("wrong version or cmd", h.Version, h.Cmd)
			t.FailNow()
		}
		if h.Addr.HostStr() != a.HostStr() || h.Addr.Port != a.Port {
			t.Log("addr not recovered", h.Addr.String(), a.String())
			t.FailNow()
		}
		if h.RawDataIndex != len(buf)-len(payload) {
			t.Log("wrong RawDataIndex", h.RawDataIndex, len(buf)-len(payload))
			t.FailNow()
		}
		if !bytes.Equal(buf[h.RawDataIndex:], payload) {
			t.Log("payload not recovered")
			t.FailNow()
		}
	}
}

// 合法客户端 addon长度始终为0, 但非0时也要正确跳过.
func TestDecodeHeader_SkipAddons(t *testing.T) {
	id := testID(t)

	buf := []byte{1} //version 1, 要求被原样解码出来
	buf = append(buf, id[:]...)
	buf = append(buf, 4, 0xde, 0xad, 0xbe, 0xef) //addon len 4 + garbage
	buf = append(buf, vless.CmdTCP, 0, 80)       //cmd, port 80
	buf = append(buf, netLayer.AtypIP4, 9, 9, 9, 9)
	buf = append(buf, 'h', 'i')

	h, err := vless.DecodeHeader(buf, id)
	if err != nil {
		t.Log("decode failed", err)
		t.FailNow()
	}
	if h.Version != 1 || h.Addr.HostStr() != "9.9.9.9" || h.Addr.Port != 80 {
		t.Log("wrong fields", h.Version, h.Addr.String())
		t.FailNow()
	}
	if string(buf[h.RawDataIndex:]) != "hi" {
		t.Log("wrong RawDataIndex", h.RawDataIndex)
		t.FailNow()
	}
}

func TestDecodeHeader_Failures(t *testing.T) {
	id := testID(t)
	otherID, _ := utils.StrToUUID("d342d11e-d424-4583-b36e-524ab1f0afa4")
	a := netLayer.Addr{Name: "example.com", Port: 80}
	good := vless.EncodeHeader(0, id, vless.CmdTCP, a, nil)

	cases := []struct {
		name string
		buf  []byte
		want error
	}{
		{"too short", good[:10], vless.ErrTooShort},
		{"wrong id", vless.EncodeHeader(0, otherID, vless.CmdTCP, a, nil), vless.ErrAuthMismatch},
		{"bad cmd", replaceByte(good, 18, 9), vless.ErrUnsupportedCmd},
		{"bad atyp", replaceByte(good, 21, 7), vless.ErrUnknownAddrType},
		{"truncated addr", good[:len(good)-3], vless.ErrMalformed},
		{"no cmd part", good[:19], vless.ErrMalformed},
	}

	for _, c := range cases {
		h, err := vless.DecodeHeader(c.buf, id)
		if err != c.want {
			t.Log(c.name, "want", c.want, "got", err)
			t.FailNow()
		}
		if h != nil {
			t.Log(c.name, "failure must not return a header")
			t.FailNow()
		}
	}
}

// udp命令本身是能解出来的, 拒绝它是session的事, 不是codec的事.
func TestDecodeHeader_UDP(t *testing.T) {
	id := testID(t)
	a := netLayer.Addr{IP: net.IPv4(8, 8, 8, 8), Port: 53}

	h, err := vless.DecodeHeader(vless.EncodeHeader(0, id, vless.CmdUDP, a, nil), id)
	if err != nil {
		t.Log("decode failed", err)
		t.FailNow()
	}
	if h.Cmd != vless.CmdUDP || h.Addr.Network != "udp" {
		t.Log("wrong cmd or network", h.Cmd, h.Addr.Network)
		t.FailNow()
	}
}

func TestResponseHeader(t *testing.T) {
	if !bytes.Equal(vless.ResponseHeader(0), []byte{0, 0}) {
		t.FailNow()
	}
	if !bytes.Equal(vless.ResponseHeader(1), []byte{1, 0}) {
		t.FailNow()
	}
}

func replaceByte(bs []byte, i int, b byte) []byte {
	out := append([]byte(nil), bs...)
	out[i] = b
	return out
}
