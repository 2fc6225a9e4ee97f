// Package probe is a reference cryostasis.ResourceProbe reading /proc-style
// counters where available. It is an out-of-scope ambient probe per spec.md
// §1 (the hardware monitor is external, interface-only); no pack example
// ships a cross-platform process/GPU sampling library, so this stays stdlib.
package probe

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/Saguny/projectghost/internal/cryostasis"
)

// ProcProbe reads CPU utilization from /proc/stat and reports zero for
// GPU/VRAM (no portable sampling mechanism exists without a vendor SDK).
type ProcProbe struct {
	blacklist []string
	prevIdle  uint64
	prevTotal uint64
}

// New constructs a ProcProbe that flags any of blacklist as a running
// process by scanning /proc/<pid>/comm.
func New(blacklist []string) *ProcProbe {
	return &ProcProbe{blacklist: blacklist}
}

// Sample implements cryostasis.ResourceProbe.
func (p *ProcProbe) Sample(ctx context.Context) (cryostasis.Sample, error) {
	cpu := p.sampleCPU()
	hit := p.scanBlacklist()
	return cryostasis.Sample{
		CPUUtilPct:   cpu,
		GPUUtilPct:   0,
		VRAMMb:       0,
		BlacklistHit: hit,
	}, nil
}

func (p *ProcProbe) sampleCPU() float64 {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0
	}

	var total uint64
	var idle uint64
	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		total += v
		if i == 3 { // idle column
			idle = v
		}
	}

	deltaTotal := total - p.prevTotal
	deltaIdle := idle - p.prevIdle
	p.prevTotal = total
	p.prevIdle = idle

	if deltaTotal == 0 {
		return 0
	}
	busy := float64(deltaTotal-deltaIdle) / float64(deltaTotal)
	return busy * 100
}

func (p *ProcProbe) scanBlacklist() string {
	if len(p.blacklist) == 0 {
		return ""
	}
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		comm, err := os.ReadFile("/proc/" + entry.Name() + "/comm")
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(comm))
		for _, bad := range p.blacklist {
			if strings.EqualFold(name, bad) {
				return name
			}
		}
	}
	return ""
}
