package main

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/e1732a364fed/vlessws/httpLayer"
	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/e1732a364fed/vlessws/ws"
)

// 普通http访问 要看到伪装的nginx页面, 而不是暴露出这是个relay.
func TestDisguisePage(t *testing.T) {
	listenAddr := netLayer.GetRandLocalAddr()
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer listener.Close()

	id, _ := utils.StrToUUID(DefaultUUIDStr)
	wsServer := ws.NewServer("/secret", true)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handleNewIncomeConn(conn, wsServer, id, httpLayer.Fallback_404)
		}
	}()

	conn, err := net.Dial("tcp", listenAddr)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer conn.Close()

	conn.Write([]byte("GET /whatever HTTP/1.1\r\nHost: example.com\r\n\r\n"))

	conn.SetReadDeadline(time.Now().Add(time.Second * 3))
	bs := make([]byte, 4096)
	n, err := conn.Read(bs)
	if err != nil {
		t.Log("no disguise response", err)
		t.FailNow()
	}
	got := string(bs[:n])

	if !strings.HasPrefix(got, "HTTP/1.1 404") || !strings.Contains(got, "nginx") {
		t.Log("response does not look like nginx", got)
		t.FailNow()
	}
}
