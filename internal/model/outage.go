package model

import "time"

// SourceProvider 六家配电网运营商（DNO）数据源标识
type SourceProvider string

const (
	ProviderNationalGrid      SourceProvider = "national_grid"
	ProviderNIENetworks       SourceProvider = "nie_networks"
	ProviderNorthernPowergrid SourceProvider = "northern_powergrid"
	ProviderSPEnergy          SourceProvider = "sp_energy"
	ProviderSSEN              SourceProvider = "ssen"
	ProviderUKPowerNetworks   SourceProvider = "uk_power_networks"
)

// AllProviders 枚举全部数据源
func AllProviders() []SourceProvider {
	return []SourceProvider{
		ProviderNationalGrid,
		ProviderNIENetworks,
		ProviderNorthernPowergrid,
		ProviderSPEnergy,
		ProviderSSEN,
		ProviderUKPowerNetworks,
	}
}

// OutageStatus 停电事件规范状态
type OutageStatus string

const (
	StatusReported OutageStatus = "reported"
	StatusOngoing  OutageStatus = "ongoing"
	StatusResolved OutageStatus = "resolved"
)

// CanTransition 状态机：reported -> ongoing -> resolved，允许 reported -> resolved 直达；
// resolved 为终态，拒绝任何回退
func (s OutageStatus) CanTransition(to OutageStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusReported:
		return to == StatusOngoing || to == StatusResolved
	case StatusOngoing:
		return to == StatusResolved
	case StatusResolved:
		return false
	}
	return false
}

// Outage 一次真实停电事件（按单一数据源跟踪）
type Outage struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SourceProvider SourceProvider `json:"source_provider" gorm:"type:varchar(32);uniqueIndex:ux_outage_natural;index:idx_outage_provider;not null"`
	// NaturalKey = 上游原生 id，缺失时为派生指纹
	// ux_outage_natural = (source_provider, natural_key)
	NaturalKey string       `json:"natural_key" gorm:"type:varchar(80);uniqueIndex:ux_outage_natural;not null"`
	Status     OutageStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	ReportedAt time.Time    `json:"reported_at" gorm:"not null"`
	LastSeenAt time.Time    `json:"last_seen_at" gorm:"not null"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	Locations []AffectedLocation `json:"locations,omitempty" gorm:"foreignKey:OutageID;constraint:OnDelete:CASCADE"`
}

func (Outage) TableName() string { return "outages" }

// AffectedLocation 停电事件关联的邮编（或邮编区域）；
// 每次轮询整组替换，不做追加日志
type AffectedLocation struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OutageID string `json:"outage_id" gorm:"type:varchar(36);index:idx_location_outage;uniqueIndex:ux_location_outage_pc;not null"`
	Postcode string `json:"postcode" gorm:"type:varchar(16);index:idx_location_postcode;uniqueIndex:ux_location_outage_pc;not null"`
}

func (AffectedLocation) TableName() string { return "affected_locations" }
