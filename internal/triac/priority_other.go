//go:build !linux

package triac

func raisePriority() error {
	return nil
}
