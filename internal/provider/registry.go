package provider

import (
	"time"

	"github.com/d60-Lab/power-monitor/config"
)

// FromConfig 按配置组装启用的适配器集合。
// 每个适配器持有独立的 Client（独立限速器），各源互不共享可变状态，
// 调用方可并发 Fetch
func FromConfig(cfg *config.Config) []Adapter {
	newClient := func() *Client {
		return NewClient(30*time.Second, cfg.Poller.FetchRPS)
	}

	var adapters []Adapter
	if cfg.Providers.NationalGrid.Enabled {
		adapters = append(adapters, NewNationalGrid(cfg.Providers.NationalGrid, newClient()))
	}
	if cfg.Providers.NIENetworks.Enabled {
		adapters = append(adapters, NewNIENetworks(cfg.Providers.NIENetworks, newClient()))
	}
	if cfg.Providers.NorthernPowergrid.Enabled {
		adapters = append(adapters, NewNorthernPowergrid(cfg.Providers.NorthernPowergrid, newClient()))
	}
	if cfg.Providers.SPEnergy.Enabled {
		adapters = append(adapters, NewSPEnergy(cfg.Providers.SPEnergy, newClient()))
	}
	if cfg.Providers.SSEN.Enabled {
		adapters = append(adapters, NewSSEN(cfg.Providers.SSEN, newClient()))
	}
	if cfg.Providers.UKPowerNetworks.Enabled {
		adapters = append(adapters, NewUKPowerNetworks(cfg.Providers.UKPowerNetworks, newClient()))
	}
	return adapters
}
