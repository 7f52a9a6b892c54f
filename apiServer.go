package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/e1732a364fed/vlessws/relay"
	"github.com/e1732a364fed/vlessws/utils"
)

var (
	enableApiServer bool
	apiServerAddr   string
)

func init() {
	flag.BoolVar(&enableApiServer, "ea", false, "enable api server")
	flag.StringVar(&apiServerAddr, "sa", "127.0.0.1:48345", "api server listen addr, keep it on loopback")
}

// runApiServer 在本机回环地址上 提供运行状态 和 prometheus指标.
// 和对外监听是完全分开的端口, 伪装面不会暴露任何指标.
func runApiServer() {

	if ce := utils.CanLogInfo("start api server"); ce != nil {
		ce.Write(zap.String("addr", apiServerAddr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "vlessws_active_sessions",
			Help: "Number of sessions currently relaying.",
		}, func() float64 { return float64(relay.ActiveSessionCount.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "vlessws_failed_sessions_total",
			Help: "Sessions terminated before relaying started.",
		}, func() float64 { return float64(relay.FailedSessionCount.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "vlessws_upload_bytes_total",
			Help: "Bytes relayed client to target.",
		}, func() float64 { return float64(relay.UploadBytes.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "vlessws_download_bytes_total",
			Help: "Bytes relayed target to client.",
		}, func() float64 { return float64(relay.DownloadBytes.Load()) }),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/allstate", printAllState)

	srv := &http.Server{
		Addr:         apiServerAddr,
		Handler:      mux,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		if ce := utils.CanLogWarn("api server exited"); ce != nil {
			ce.Write(zap.Error(err))
		}
	}
}

func printAllState(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "activeSessionCount:", relay.ActiveSessionCount.Load())
	fmt.Fprintln(w, "failedSessionCount:", relay.FailedSessionCount.Load())
	fmt.Fprintln(w, "uploadBytes:", relay.UploadBytes.Load())
	fmt.Fprintln(w, "downloadBytes:", relay.DownloadBytes.Load())
}
