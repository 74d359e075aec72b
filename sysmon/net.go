package sysmon

import (
	"strconv"
	"strings"

	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

type netCounters struct {
	rxBytes   int
	rxPackets int
	txBytes   int
	txPackets int
}

func parseNetCounters(buf []byte) map[string]*netCounters {
	stats := map[string]*netCounters{}
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 17 || !strings.HasSuffix(parts[0], ":") {
			continue
		}

		iface := parts[0][:len(parts[0])-1]
		if iface == "lo" {
			continue
		}

		rxBytes, _ := strconv.Atoi(parts[1])
		rxPackets, _ := strconv.Atoi(parts[2])
		txBytes, _ := strconv.Atoi(parts[9])
		txPackets, _ := strconv.Atoi(parts[10])

		stats[iface] = &netCounters{
			rxBytes:   rxBytes,
			rxPackets: rxPackets,
			txBytes:   txBytes,
			txPackets: txPackets,
		}
	}
	return stats
}

// computeNetworkRates converts counter deltas into per-second rates. Idle
// interfaces (no bytes moved during the interval) are left out of the sample.
func computeNetworkRates(prev, curr map[string]*netCounters, interval float64) map[string]*report.NetworkRates {
	if len(prev) == 0 || len(curr) == 0 || interval <= 0 {
		return map[string]*report.NetworkRates{}
	}

	results := map[string]*report.NetworkRates{}
	for iface, c := range curr {
		p, ok := prev[iface]
		if !ok {
			continue
		}

		rxBytes := clampDelta(c.rxBytes - p.rxBytes)
		txBytes := clampDelta(c.txBytes - p.txBytes)
		if rxBytes == 0 && txBytes == 0 {
			continue
		}
		rxPackets := clampDelta(c.rxPackets - p.rxPackets)
		txPackets := clampDelta(c.txPackets - p.txPackets)

		results[iface] = &report.NetworkRates{
			RxMBs: util.Round(float64(rxBytes)/(1024*1024*interval), 3),
			TxMBs: util.Round(float64(txBytes)/(1024*1024*interval), 3),
			RxPPS: util.Round(float64(rxPackets)/interval, 2),
			TxPPS: util.Round(float64(txPackets)/interval, 2),
		}
	}
	return results
}
