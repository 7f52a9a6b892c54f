package relay_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net"
	"testing"
	"time"

	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/relay"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/e1732a364fed/vlessws/vless"
	"github.com/e1732a364fed/vlessws/ws"
	gobwasws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const (
	testUUIDStr = "a684455c-b14f-11ea-bf0d-42010aaa0003"
	testWsPath  = "/relaytest"

	request  = "GET / HTTP/1.0\r\n\r\n"
	response = "HTTP/1.0 200 OK\r\n\r\nhello from target"
)

// 起一个完整的relay监听端: accept -> ws握手 -> session.
func startRelay(t *testing.T) (listenAddr string, id [16]byte) {
	id, err := utils.StrToUUID(testUUIDStr)
	if err != nil {
		t.FailNow()
	}

	listenAddr = netLayer.GetRandLocalAddr()
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		t.Log("can not listen", err)
		t.FailNow()
	}
	t.Cleanup(func() { listener.Close() })

	wsServer := ws.NewServer(testWsPath, true)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				wsConn, err := wsServer.Handshake(conn)
				if err != nil {
					conn.Close()
					return
				}
				relay.NewSession(wsConn).Run(id)
			}()
		}
	}()
	return
}

// 起一个模拟的目标tcp服务: 收到 request 后回写 response.
// acceptCh 用来断言 有没有 连接到达.
func startTarget(t *testing.T) (addr netLayer.Addr, acceptCh chan struct{}) {
	listener, err := net.Listen("tcp", netLayer.GetRandLocalAddr())
	if err != nil {
		t.Log("can not listen target", err)
		t.FailNow()
	}
	t.Cleanup(func() { listener.Close() })

	addr, err = netLayer.NewAddr(listener.Addr().String())
	if err != nil {
		t.FailNow()
	}

	acceptCh = make(chan struct{}, 8)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			acceptCh <- struct{}{}
			go func() {
				defer conn.Close()
				buf := make([]byte, len(request))
				if _, err := io.ReadFull(conn, buf); err != nil {
					t.Log("target read err", err)
					return
				}
				if string(buf) != request {
					t.Log("target got wrong request", string(buf))
					t.Fail()
					return
				}
				conn.Write([]byte(response))
			}()
		}
	}()
	return
}

func dialRelay(t *testing.T, listenAddr string, protocols []string) net.Conn {
	dialer := gobwasws.Dialer{Protocols: protocols}
	conn, br, _, err := dialer.Dial(context.Background(), "ws://"+listenAddr+testWsPath)
	if err != nil {
		t.Log("ws dial failed", err)
		t.FailNow()
	}
	t.Cleanup(func() { conn.Close() })
	// gobwas returns frame bytes that arrived together with the handshake
	// response in br; they must be read before reading from conn directly.
	if br != nil {
		return &bufferedConn{Conn: conn, r: io.MultiReader(br, conn)}
	}
	return conn
}

// bufferedConn drains the dialer's buffered reader before the raw conn.
type bufferedConn struct {
	net.Conn
	r io.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

// 完整场景: 头部带 trailing data, 回程第一个帧必须是 [version,0],
// 之后才是目标的响应字节.
func TestSessionTCP(t *testing.T) {
	relayAddr, id := startRelay(t)
	targetAddr, acceptCh := startTarget(t)

	conn := dialRelay(t, relayAddr, nil)

	head := vless.EncodeHeader(0, id, vless.CmdTCP, targetAddr, []byte(request))
	if err := wsutil.WriteClientBinary(conn, head); err != nil {
		t.Log(err)
		t.FailNow()
	}

	first, err := wsutil.ReadServerBinary(conn)
	if err != nil || !bytes.Equal(first, []byte{0, 0}) {
		t.Log("first frame must be the 2-byte response header", first, err)
		t.FailNow()
	}

	got := readAll(t, conn, len(response))
	if string(got) != response {
		t.Log("wrong relayed response", string(got))
		t.FailNow()
	}

	select {
	case <-acceptCh:
	default:
		t.Log("target never got a connection")
		t.FailNow()
	}
}

// earlydata客户端: 整个 头部+载荷 放在握手header里, 之后不发任何帧.
func TestSessionEarlyData(t *testing.T) {
	relayAddr, id := startRelay(t)
	targetAddr, _ := startTarget(t)

	head := vless.EncodeHeader(0, id, vless.CmdTCP, targetAddr, []byte(request))
	conn := dialRelay(t, relayAddr, []string{base64.RawURLEncoding.EncodeToString(head)})

	first, err := wsutil.ReadServerBinary(conn)
	if err != nil || !bytes.Equal(first, []byte{0, 0}) {
		t.Log("first frame must be the 2-byte response header", first, err)
		t.FailNow()
	}

	got := readAll(t, conn, len(response))
	if string(got) != response {
		t.Log("wrong relayed response", string(got))
		t.FailNow()
	}
}

// udp命令要立即关掉websocket, 且绝不能向目标发起连接.
func TestSessionRejectsUDP(t *testing.T) {
	relayAddr, id := startRelay(t)
	targetAddr, acceptCh := startTarget(t)

	conn := dialRelay(t, relayAddr, nil)

	head := vless.EncodeHeader(0, id, vless.CmdUDP, targetAddr, nil)
	if err := wsutil.WriteClientBinary(conn, head); err != nil {
		t.Log(err)
		t.FailNow()
	}

	assertClosedWithoutDialing(t, conn, acceptCh)
}

// uuid不对: 同样立即关闭, 不碰目标.
func TestSessionRejectsWrongID(t *testing.T) {
	relayAddr, _ := startRelay(t)
	targetAddr, acceptCh := startTarget(t)

	wrongID, _ := utils.StrToUUID("d342d11e-d424-4583-b36e-524ab1f0afa4")

	conn := dialRelay(t, relayAddr, nil)

	head := vless.EncodeHeader(0, wrongID, vless.CmdTCP, targetAddr, nil)
	if err := wsutil.WriteClientBinary(conn, head); err != nil {
		t.Log(err)
		t.FailNow()
	}

	assertClosedWithoutDialing(t, conn, acceptCh)
}

func assertClosedWithoutDialing(t *testing.T, conn net.Conn, acceptCh chan struct{}) {
	conn.SetReadDeadline(time.Now().Add(time.Second * 2))
	if _, err := wsutil.ReadServerBinary(conn); err == nil {
		t.Log("expected the websocket to be closed")
		t.FailNow()
	}

	select {
	case <-acceptCh:
		t.Log("target must not be dialed")
		t.FailNow()
	case <-time.After(200 * time.Millisecond):
	}
}

// 目标的响应可能被拆成多个websocket帧, 读够 total 为止.
func readAll(t *testing.T, conn net.Conn, total int) []byte {
	conn.SetReadDeadline(time.Now().Add(time.Second * 5))
	var got []byte
	for len(got) < total {
		bs, err := wsutil.ReadServerBinary(conn)
		if err != nil {
			t.Log("read failed", err)
			t.FailNow()
		}
		got = append(got, bs...)
	}
	return got
}
