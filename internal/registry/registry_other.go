//go:build !windows

package registry

func writeValues(string, Values) error {
	return ErrUnsupported
}
