package metrics

import (
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册 build_info 指标，值恒为 1. 重复调用只保留第一次.
// version 为空或 "dev" 时尝试使用模块构建信息中的版本.
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	if serviceName == "" {
		serviceName = "wordmask"
	}

	m.BuildInfo = m.NewGaugeVec(&prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build information of the running binary",
	}, []string{"service", "version", "goversion"})

	m.BuildInfo.WithLabelValues(serviceName, resolveVersion(version), runtime.Version()).Set(1)
}

func resolveVersion(version string) string {
	if version != "" && version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	if version == "" {
		return "unknown"
	}
	return version
}
