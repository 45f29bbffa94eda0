package compliance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/nerrad567/dockscan/internal/dock"
)

// Exit codes reported to Intune.
const (
	ExitCompliant    = 0
	ExitNonCompliant = 1
	ExitError        = 2
)

// Policy configures evaluation.
type Policy struct {
	// MinimumFirmware maps a model regular expression to the lowest
	// acceptable firmware version for matching docks.
	MinimumFirmware map[string]string

	// FailOnOutdatedFirmware makes any firmware finding non-compliant.
	FailOnOutdatedFirmware bool
}

// Finding reports one dock below its firmware minimum.
type Finding struct {
	Model     string `json:"model"`
	Serial    string `json:"serial_number"`
	Firmware  string `json:"firmware_version"`
	Minimum   string `json:"minimum_version"`
	RuleModel string `json:"rule"`
}

// String renders the finding for logs and text reports.
func (f Finding) String() string {
	return fmt.Sprintf("%s (%s) firmware %s is below %s", f.Model, f.Serial, f.Firmware, f.Minimum)
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Compliant bool      `json:"compliant"`
	ExitCode  int       `json:"exit_code"`
	Reason    string    `json:"reason"`
	Findings  []Finding `json:"findings,omitempty"`
}

// rule is a compiled MinimumFirmware entry.
type rule struct {
	pattern string
	re      *regexp.Regexp
	minimum *goversion.Version
	raw     string
}

// Evaluator applies a Policy. Build it once with NewEvaluator; the zero value
// applies an empty policy. It is safe for concurrent use.
type Evaluator struct {
	policy Policy
	rules  []rule
}

// NewEvaluator compiles the policy's patterns and versions.
//
// Returns ErrInvalidPolicy if a pattern or version does not parse.
func NewEvaluator(policy Policy) (*Evaluator, error) {
	patterns := make([]string, 0, len(policy.MinimumFirmware))
	for p := range policy.MinimumFirmware {
		patterns = append(patterns, p)
	}
	// Map order is random; sort so the first matching rule is deterministic.
	sort.Strings(patterns)

	e := &Evaluator{policy: policy}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidPolicy, p, err)
		}
		raw := policy.MinimumFirmware[p]
		v, err := goversion.NewVersion(Normalize(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: minimum %q for %q: %w", ErrInvalidPolicy, raw, p, err)
		}
		e.rules = append(e.rules, rule{pattern: p, re: re, minimum: v, raw: raw})
	}
	return e, nil
}

// Evaluate maps inv to a verdict.
//
// Parameters:
//   - inv: Resolved inventory
//
// Returns:
//   - Verdict: Compliance, exit code, human-readable reason and firmware findings
func (e *Evaluator) Evaluate(inv dock.Inventory) Verdict {
	if inv.Empty() {
		return Verdict{
			Compliant: false,
			ExitCode:  ExitNonCompliant,
			Reason:    "no dock detected",
		}
	}

	findings := e.firmwareFindings(inv.Entries)
	v := Verdict{
		Compliant: true,
		ExitCode:  ExitCompliant,
		Reason:    fmt.Sprintf("%d dock(s) detected via %s", inv.DockCount(), inv.Source),
		Findings:  findings,
	}
	if len(findings) > 0 && e.policy.FailOnOutdatedFirmware {
		v.Compliant = false
		v.ExitCode = ExitNonCompliant
		v.Reason = fmt.Sprintf("%d dock(s) below minimum firmware", len(findings))
	}
	return v
}

func (e *Evaluator) firmwareFindings(entries []dock.InventoryEntry) []Finding {
	var findings []Finding
	for _, entry := range entries {
		if entry.FirmwareVersion == dock.UnknownFirmware {
			continue
		}
		current, err := goversion.NewVersion(Normalize(entry.FirmwareVersion))
		if err != nil {
			continue
		}
		for _, r := range e.rules {
			if !r.re.MatchString(entry.Model) {
				continue
			}
			if current.LessThan(r.minimum) {
				findings = append(findings, Finding{
					Model:     entry.Model,
					Serial:    entry.SerialNumber,
					Firmware:  entry.FirmwareVersion,
					Minimum:   r.raw,
					RuleModel: r.pattern,
				})
			}
			break
		}
	}
	return findings
}

// Normalize strips decorations Dell tools put around firmware versions,
// e.g. "v01.00.14" or "01.00.14 (A04)", leaving a dotted numeric version.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	if i := strings.IndexAny(v, " ("); i >= 0 {
		v = v[:i]
	}
	return v
}
