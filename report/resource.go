package report

// CPU usage percentages for one sampling interval. All values are in [0, 100]
// and user+system+iowait never exceeds Total.
type CPUUsage struct {
	Total  float64 `json:"total"`
	User   float64 `json:"user"`
	System float64 `json:"system"`
	Iowait float64 `json:"iowait"`
}

// Per-device disk rates for one sampling interval.
type DiskRates struct {
	ReadMBs   float64 `json:"read_mb_s"`
	WriteMBs  float64 `json:"write_mb_s"`
	ReadIOPS  float64 `json:"read_iops"`
	WriteIOPS float64 `json:"write_iops"`
	TotalIOPS float64 `json:"total_iops"`
}

// Per-interface network rates for one sampling interval.
type NetworkRates struct {
	RxMBs float64 `json:"rx_mb_s"`
	TxMBs float64 `json:"tx_mb_s"`
	RxPPS float64 `json:"rx_pps"`
	TxPPS float64 `json:"tx_pps"`
}

// One sample of the resource monitor. Disk and network maps are keyed by
// device and interface name.
type ResourceSnapshot struct {
	Timestamp string                   `json:"timestamp"`
	CPU       *CPUUsage                `json:"cpu"`
	Disk      map[string]*DiskRates    `json:"disk"`
	Network   map[string]*NetworkRates `json:"network"`
}

type MonitoringConfig struct {
	IntervalSeconds  int    `json:"interval_seconds"`
	StartTime        string `json:"start_time,omitempty"`
	EndTime          string `json:"end_time,omitempty"`
	SamplesCollected int    `json:"samples_collected"`
}

type CPUSummary struct {
	Avg       float64 `json:"avg"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	AvgIowait float64 `json:"avg_iowait"`
	MaxIowait float64 `json:"max_iowait"`
}

type DiskSummary struct {
	AvgIOPS float64 `json:"avg_iops"`
	MaxIOPS float64 `json:"max_iops"`
	MinIOPS float64 `json:"min_iops"`
}

type ResourceSummary struct {
	CPU  *CPUSummary  `json:"cpu,omitempty"`
	Disk *DiskSummary `json:"disk,omitempty"`
}

// The resource_metrics.json document.
type ResourceMetrics struct {
	MonitoringConfig MonitoringConfig    `json:"monitoring_config"`
	Metrics          []*ResourceSnapshot `json:"metrics"`
	Summary          *ResourceSummary    `json:"summary"`
	Activity         []*ActivityWindow   `json:"activity,omitempty"`
}
