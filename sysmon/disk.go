package sysmon

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

const sectorSize = 512

type diskCounters struct {
	readsCompleted  int
	sectorsRead     int
	writesCompleted int
	sectorsWritten  int
	ioTimeMs        int
}

// Whole NVMe devices are nvmeXnY; partitions append pZ.
var nvmeWholeDeviceRe = regexp.MustCompile(`^nvme\d+n\d+$`)

// parseDiskCounters reads /proc/diskstats keeping whole disks only: SCSI
// (major 8, minor divisible by 16) and NVMe (major 259) devices. Partitions
// are skipped so that rates are not double counted.
func parseDiskCounters(buf []byte) map[string]*diskCounters {
	stats := map[string]*diskCounters{}
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 13 {
			continue
		}

		major, _ := strconv.Atoi(parts[0])
		minor, _ := strconv.Atoi(parts[1])
		device := parts[2]

		switch major {
		case 8:
			if minor%16 != 0 {
				continue
			}
		case 259:
			if !nvmeWholeDeviceRe.MatchString(device) {
				continue
			}
		default:
			continue
		}

		readsCompleted, _ := strconv.Atoi(parts[3])
		sectorsRead, _ := strconv.Atoi(parts[5])
		writesCompleted, _ := strconv.Atoi(parts[7])
		sectorsWritten, _ := strconv.Atoi(parts[9])
		ioTimeMs, _ := strconv.Atoi(parts[12])

		stats[device] = &diskCounters{
			readsCompleted:  readsCompleted,
			sectorsRead:     sectorsRead,
			writesCompleted: writesCompleted,
			sectorsWritten:  sectorsWritten,
			ioTimeMs:        ioTimeMs,
		}
	}
	return stats
}

// computeDiskRates converts counter deltas into per-second rates. Sectors are
// 512 bytes. Counter regress (wraparound) clamps to zero rather than
// producing a negative rate.
func computeDiskRates(prev, curr map[string]*diskCounters, interval float64) map[string]*report.DiskRates {
	if len(prev) == 0 || len(curr) == 0 || interval <= 0 {
		return map[string]*report.DiskRates{}
	}

	results := map[string]*report.DiskRates{}
	for device, c := range curr {
		p, ok := prev[device]
		if !ok {
			continue
		}

		readBytes := clampDelta(c.sectorsRead-p.sectorsRead) * sectorSize
		writeBytes := clampDelta(c.sectorsWritten-p.sectorsWritten) * sectorSize
		reads := clampDelta(c.readsCompleted - p.readsCompleted)
		writes := clampDelta(c.writesCompleted - p.writesCompleted)

		results[device] = &report.DiskRates{
			ReadMBs:   util.Round(float64(readBytes)/(1024*1024*interval), 2),
			WriteMBs:  util.Round(float64(writeBytes)/(1024*1024*interval), 2),
			ReadIOPS:  util.Round(float64(reads)/interval, 2),
			WriteIOPS: util.Round(float64(writes)/interval, 2),
			TotalIOPS: util.Round(float64(reads+writes)/interval, 2),
		}
	}
	return results
}

func clampDelta(d int) int {
	if d < 0 {
		return 0
	}
	return d
}
