package capability

import "fmt"

// RiskLevel represents the security risk level of a permission grant.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "none"
	}
}

// RiskReport contains the overall risk assessment for a set of permissions.
type RiskReport struct {
	RiskFactors []RiskFactor
	Level       RiskLevel
}

// RiskFactor describes a single risk element in a permission grant.
type RiskFactor struct {
	Description string
	Rule        string
	Level       RiskLevel
}

var permissionRisk = map[Permission]struct {
	desc  string
	level RiskLevel
}{
	PermSubprocess:  {"Arbitrary command execution", RiskCritical},
	PermNetwork:     {"Outbound network access", RiskMedium},
	PermFilesWrite:  {"Filesystem write access", RiskHigh},
	PermFilesRead:   {"Filesystem read access", RiskMedium},
	PermClipboard:   {"Clipboard access", RiskLow},
	PermKeymap:      {"Global key bindings", RiskLow},
	PermTimers:      {"Background timers", RiskLow},
	PermPreferences: {"Persistent preferences", RiskNone},
}

// AnalyzeRisk evaluates the risk level of a permission set. Factors are
// listed in lexical permission order.
func AnalyzeRisk(perms PermissionSet) RiskReport {
	report := RiskReport{
		Level: RiskNone,
	}

	for _, p := range perms.Sorted() {
		r, ok := permissionRisk[p]
		if !ok || r.level == RiskNone {
			continue
		}
		report.RiskFactors = append(report.RiskFactors, RiskFactor{
			Level:       r.level,
			Description: r.desc,
			Rule:        fmt.Sprintf("permission: %s", p),
		})
		if r.level > report.Level {
			report.Level = r.level
		}
	}

	return report
}
