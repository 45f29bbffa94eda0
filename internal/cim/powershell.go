package cim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nerrad567/dockscan/internal/process"
)

// DefaultPowerShell is the Windows PowerShell executable resolved through PATH.
const DefaultPowerShell = "powershell.exe"

// defaultTimeout applies when Options.Timeout is zero.
const defaultTimeout = 30 * time.Second

var (
	namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\\[A-Za-z0-9_]+)*$`)
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// notFoundMarkers are fragments of the errors Get-CimInstance emits when a
	// namespace or class is missing (WBEM_E_INVALID_NAMESPACE, WBEM_E_INVALID_CLASS).
	notFoundMarkers = []string{
		"invalid namespace",
		"invalid class",
		"0x8004100e",
		"0x80041010",
	}
)

// Options configures a PowerShellQuerier.
type Options struct {
	// Binary is the PowerShell executable. Defaults to DefaultPowerShell.
	Binary string

	// Timeout bounds each query. Defaults to 30s.
	Timeout time.Duration
}

// PowerShellQuerier implements Querier with Get-CimInstance.
type PowerShellQuerier struct {
	runner  process.Runner
	binary  string
	timeout time.Duration
}

// NewPowerShellQuerier creates a querier that runs PowerShell through runner.
func NewPowerShellQuerier(runner process.Runner, opts Options) *PowerShellQuerier {
	if opts.Binary == "" {
		opts.Binary = DefaultPowerShell
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &PowerShellQuerier{
		runner:  runner,
		binary:  opts.Binary,
		timeout: opts.Timeout,
	}
}

// Query implements Querier.
//
// Parameters:
//   - ctx: Context for cancellation
//   - q: Query to run
//
// Returns:
//   - []Instance: Matching instances (empty, not nil-error, when none match)
//   - error: ErrInvalidQuery, ErrNamespaceNotFound, ErrDecode or ErrQueryFailed
func (p *PowerShellQuerier) Query(ctx context.Context, q Query) ([]Instance, error) {
	script, err := BuildScript(q)
	if err != nil {
		return nil, err
	}

	res, err := p.runner.Run(ctx, process.Config{
		Name:    "cim:" + q.Class,
		Binary:  p.binary,
		Args:    []string{"-NoProfile", "-NoLogo", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", script},
		Timeout: p.timeout,
	})
	if err != nil {
		if isNotFound(res.Stderr) || isNotFound([]byte(err.Error())) {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, q)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, q, err)
	}

	return Decode(res.Stdout)
}

// BuildScript renders the PowerShell pipeline for q.
//
// Identifiers are validated against a strict character set. The filter is
// passed as a single-quoted PowerShell literal, in which only the quote
// itself needs escaping.
func BuildScript(q Query) (string, error) {
	if !namespacePattern.MatchString(q.Namespace) {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidQuery, q.Namespace)
	}
	if !identPattern.MatchString(q.Class) {
		return "", fmt.Errorf("%w: class %q", ErrInvalidQuery, q.Class)
	}
	for _, prop := range q.Properties {
		if !identPattern.MatchString(prop) {
			return "", fmt.Errorf("%w: property %q", ErrInvalidQuery, prop)
		}
	}
	if strings.ContainsAny(q.Filter, "\r\n\x00") {
		return "", fmt.Errorf("%w: filter contains control characters", ErrInvalidQuery)
	}

	var b strings.Builder
	b.WriteString("$ProgressPreference = 'SilentlyContinue'; ")
	fmt.Fprintf(&b, "Get-CimInstance -Namespace '%s' -ClassName '%s'", q.Namespace, q.Class)
	if q.Filter != "" {
		fmt.Fprintf(&b, " -Filter '%s'", strings.ReplaceAll(q.Filter, "'", "''"))
	}
	b.WriteString(" -ErrorAction Stop")
	if len(q.Properties) > 0 {
		fmt.Fprintf(&b, " | Select-Object -Property %s", strings.Join(q.Properties, ","))
	}
	b.WriteString(" | ConvertTo-Json -Compress -Depth 3")
	return b.String(), nil
}

// Decode parses ConvertTo-Json output, which is a single object for one
// result, an array for several, and nothing at all for none.
func Decode(out []byte) ([]Instance, error) {
	out = bytes.TrimSpace(bytes.TrimPrefix(out, []byte("\xef\xbb\xbf")))
	if len(out) == 0 {
		return nil, nil
	}

	switch out[0] {
	case '[':
		var list []Instance
		if err := json.Unmarshal(out, &list); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		instances := list[:0]
		for _, inst := range list {
			if inst != nil {
				instances = append(instances, inst)
			}
		}
		return instances, nil
	case '{':
		var inst Instance
		if err := json.Unmarshal(out, &inst); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return []Instance{inst}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected output %q", ErrDecode, truncate(out, 64))
	}
}

func isNotFound(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	for _, marker := range notFoundMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
