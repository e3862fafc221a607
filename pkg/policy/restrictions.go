package policy

import (
	"net/netip"
	"time"

	"github.com/openagora/agora/pkg/models"
)

// timeAllows reports whether the instant falls inside the policy's time
// window. Hour ranges where start > end span midnight, e.g. 22 to 6.
// A policy naming an unloadable timezone never applies.
func timeAllows(tr *models.TimeRestrictions, now time.Time) bool {
	if tr == nil {
		return true
	}

	if tr.ValidFrom != nil && now.Before(*tr.ValidFrom) {
		return false
	}
	if tr.ValidUntil != nil && now.After(*tr.ValidUntil) {
		return false
	}

	local := now
	if tr.Timezone != "" {
		loc, err := time.LoadLocation(tr.Timezone)
		if err != nil {
			return false
		}
		local = now.In(loc)
	}

	if len(tr.DaysOfWeek) > 0 {
		day := int(local.Weekday())
		allowed := false
		for _, d := range tr.DaysOfWeek {
			if d == day {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if tr.StartHour != nil && tr.EndHour != nil {
		hour := local.Hour()
		start, end := *tr.StartHour, *tr.EndHour
		if start <= end {
			if hour < start || hour >= end {
				return false
			}
		} else {
			if hour >= end && hour < start {
				return false
			}
		}
	}

	return true
}

// ipAllows applies CIDR restrictions: the block list is checked first,
// then a non-empty allow list requires a match. Requests without a
// parseable client address fail closed when restrictions are present.
func ipAllows(ir *models.IPRestrictions, clientIP string) bool {
	if ir == nil || (len(ir.Allowed) == 0 && len(ir.Blocked) == 0) {
		return true
	}

	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}

	for _, cidr := range ir.Blocked {
		if cidrContains(cidr, addr) {
			return false
		}
	}
	if len(ir.Allowed) == 0 {
		return true
	}
	for _, cidr := range ir.Allowed {
		if cidrContains(cidr, addr) {
			return true
		}
	}
	return false
}

// cidrContains accepts both prefix and bare address entries.
func cidrContains(cidr string, addr netip.Addr) bool {
	if prefix, err := netip.ParsePrefix(cidr); err == nil {
		return prefix.Contains(addr)
	}
	if single, err := netip.ParseAddr(cidr); err == nil {
		return single == addr
	}
	return false
}
