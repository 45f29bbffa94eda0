// Package process runs short-lived helper commands and captures their output.
//
// dockscan shells out to PowerShell for every CIM query. Each call is a
// one-shot: start the binary, wait for it to exit or for its timeout to fire,
// and hand back stdout, stderr and the exit code.
//
// Features:
//   - Per-call timeout layered on the caller's context
//   - Separate stdout/stderr capture with a size cap
//   - Non-zero exits reported as ErrExitStatus with stderr attached
//   - Runner interface so callers can substitute a fake in tests
//
// Example usage:
//
//	res, err := process.Run(ctx, process.Config{
//	    Name:    "cim-query",
//	    Binary:  "powershell.exe",
//	    Args:    []string{"-NoProfile", "-NonInteractive", "-Command", script},
//	    Timeout: 30 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(string(res.Stdout))
package process
