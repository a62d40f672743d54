// Package sysinfo detects facts about the machine nodescout itself runs
// on. It is used when the target is local and no system block is present in
// the config.
package sysinfo

import (
	"context"
	"runtime"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/util"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
)

// Detect builds a SystemInfo for the local machine. Hardware probes are
// best-effort: a field that cannot be read stays empty rather than failing
// the detection.
func Detect(ctx context.Context, log *logging.Logger) core.SystemInfo {
	if log == nil {
		log = logging.NewNop()
	}

	info := core.NewSystemInfo("")
	info.OSFamily = osFamily(runtime.GOOS)

	var hostInfo *host.InfoStat
	var product *ghw.ProductInfo

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := host.InfoWithContext(ctx)
		if err != nil {
			log.Debug("host detection failed", "error", err)
			return nil
		}
		hostInfo = h
		return nil
	})
	g.Go(func() error {
		p, err := ghw.Product()
		if err != nil {
			log.Debug("product detection failed", "error", err)
			return nil
		}
		product = p
		return nil
	})
	_ = g.Wait()

	if hostInfo != nil {
		info.Name = hostInfo.Hostname
		info.Platform = hostInfo.Platform
		if hostInfo.PlatformVersion != "" {
			info.Platform += " " + hostInfo.PlatformVersion
		}
	}
	if product != nil {
		sku := product.SKU
		if sku == "" || sku == util.UNKNOWN {
			sku = product.Name
		}
		if sku != util.UNKNOWN {
			info.SKU = sku
		}
	}
	return info
}

// osFamily maps a GOOS value to the coarse family used for probe gating.
func osFamily(goos string) core.OSFamily {
	switch goos {
	case "windows":
		return core.OSFamilyWindows
	case "linux", "darwin", "freebsd", "openbsd", "netbsd":
		return core.OSFamilyLinux
	default:
		return core.OSFamilyUnknown
	}
}
