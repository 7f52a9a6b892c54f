/*
vlessws is a relay: it accepts vless-over-websocket on one side, dials the
requested target over tcp on the other side, and pipes bytes in between.

普通的http访问 以及 path不对的探测 都会看到一个伪装的nginx页面.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/e1732a364fed/vlessws/httpLayer"
	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/relay"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/e1732a364fed/vlessws/ws"
)

// 握手必须在这个时间内完成, 挡住 只连接不说话 的探测.
const handshakeTimeout = time.Second * 8

var (
	configFileName string
	printVer       bool

	startCPUProfile bool
	startMemProfile bool
)

func init() {
	flag.StringVar(&configFileName, "c", "", "config file name")
	flag.BoolVar(&printVer, "v", false, "print the version string then exit")
	flag.BoolVar(&startCPUProfile, "cpu_pprof", false, "profile cpu usage")
	flag.BoolVar(&startMemProfile, "mem_pprof", false, "profile memory usage")
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() int {
	flag.Parse()

	if printVer {
		fmt.Println(versionStr())
		return 0
	}

	//只能 开启一个 profile
	if startCPUProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	} else if startMemProfile {
		defer profile.Start(profile.MemProfile).Stop()
	}

	conf, err := loadConf(configFileName)
	if err != nil {
		fmt.Println("can not load config file:", err)
		return -1
	}

	if utils.LogOutFileName == "" {
		utils.LogOutFileName = conf.App.LogFile
	}
	utils.InitLog()

	if ce := utils.CanLogInfo(versionStr()); ce != nil {
		ce.Write(
			zap.String("listen", conf.Listen.Addr),
			zap.String("path", conf.Listen.WSPath),
		)
	}

	allowedID := decideUserID(conf)

	if conf.Dial.DNSServer != "" {
		netLayer.SetCustomDNS(conf.Dial.DNSServer)
	}
	if conf.Dial.TimeoutSecs > 0 {
		netLayer.DialTimeout = time.Duration(conf.Dial.TimeoutSecs) * time.Second
	}

	listener, err := netLayer.Listen(conf.Listen.Addr, conf.Listen.PROXYProtocol)
	if err != nil {
		if ce := utils.CanLogErr("can not listen"); ce != nil {
			ce.Write(zap.String("addr", conf.Listen.Addr), zap.Error(err))
		}
		return -1
	}

	wsServer := ws.NewServer(conf.Listen.WSPath, true)
	fallbackType := conf.fallbackType()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				if ce := utils.CanLogWarn("failed in accept"); ce != nil {
					ce.Write(zap.Error(err))
				}
				continue
			}
			go handleNewIncomeConn(conn, wsServer, allowedID, fallbackType)
		}
	}()

	if enableApiServer {
		go runApiServer()
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-osSignals

	if ce := utils.CanLogInfo("shutting down"); ce != nil {
		ce.Write()
	}
	listener.Close()
	return 0
}

// handleNewIncomeConn 对一条新连接 完成websocket升级 并把它交给一个session.
// 升级失败的连接 按伪装页面处理.
func handleNewIncomeConn(conn net.Conn, wsServer *ws.Server, allowedID [utils.UUID_BytesLen]byte, fallbackType int) {

	conn.SetDeadline(time.Now().Add(handshakeTimeout))

	wsConn, err := wsServer.Handshake(conn)
	if err != nil {
		var re *httpLayer.RequestErr
		if errors.As(err, &re) {
			//看起来就像一个普通的nginx站点
			conn.Write([]byte(httpLayer.GetFallbackResponse(fallbackType)))
		} else {
			if ce := utils.CanLogDebug("ws handshake failed"); ce != nil {
				ce.Write(zap.String("client", conn.RemoteAddr().String()), zap.Error(err))
			}
		}
		conn.Close()
		return
	}

	conn.SetDeadline(time.Time{})

	relay.NewSession(wsConn).Run(allowedID)
}
