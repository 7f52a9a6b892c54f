package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/e1732a364fed/vlessws/httpLayer"
	"github.com/e1732a364fed/vlessws/utils"
	"go.uber.org/zap"
)

// 找不到可用uuid时的兜底id. 这是为了开箱即用故意保留的宽松默认值,
// 不是安全实践; 用默认id跑公网等于裸奔, 启动时会给出警告.
const DefaultUUIDStr = "d342d11e-d424-4583-b36e-524ab1f0afa4"

// 环境变量优先于配置文件.
const UUIDEnvKey = "RELAY_UUID"

type AppConf struct {
	UUID    string `toml:"uuid"`
	LogFile string `toml:"log_file"`
}

type ListenConf struct {
	Addr          string `toml:"addr"`
	WSPath        string `toml:"ws_path"`
	PROXYProtocol bool   `toml:"proxy_protocol"` //部署在负载均衡后面时开启
	Fallback      string `toml:"fallback"`       //"404"(默认), "400" 或 "403"
}

type DialConf struct {
	DNSServer   string `toml:"dns_server"` //"ip:53" 形式, 留空则用系统解析
	TimeoutSecs int    `toml:"timeout_secs"`
}

type Conf struct {
	App    AppConf    `toml:"app"`
	Listen ListenConf `toml:"listen"`
	Dial   DialConf   `toml:"dial"`
}

func loadConf(fileName string) (*Conf, error) {
	conf := &Conf{
		Listen: ListenConf{
			Addr:   "0.0.0.0:8080",
			WSPath: "/",
		},
	}

	if fileName != "" {
		if _, err := toml.DecodeFile(fileName, conf); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

func (c *Conf) fallbackType() int {
	switch c.Listen.Fallback {
	case "400":
		return httpLayer.Fallback_400
	case "403":
		return httpLayer.Fallback_403
	default:
		return httpLayer.Fallback_404
	}
}

// decideUserID 决定本进程唯一的授权id: 环境变量 > 配置文件 > 内置默认值.
// 给出的值缺失或不是合法uuid时 一律回退到默认值并警告, 不会拒绝启动.
func decideUserID(conf *Conf) [utils.UUID_BytesLen]byte {

	str := os.Getenv(UUIDEnvKey)
	from := "env " + UUIDEnvKey

	if str == "" {
		str = conf.App.UUID
		from = "config file"
	}

	if str != "" {
		id, err := utils.StrToUUID(str)
		if err == nil {
			if ce := utils.CanLogInfo("using configured uuid"); ce != nil {
				ce.Write(zap.String("from", from))
			}
			return id
		}
		if ce := utils.CanLogWarn("configured uuid is not valid, falling back to default"); ce != nil {
			ce.Write(zap.String("from", from), zap.Error(err))
		}
	} else {
		if ce := utils.CanLogWarn("no uuid configured, falling back to default"); ce != nil {
			ce.Write()
		}
	}

	id, _ := utils.StrToUUID(DefaultUUIDStr)
	return id
}
