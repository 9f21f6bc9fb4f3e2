//go:build !linux

package serial

func openTermios(cfg *Config) (Port, error) {
	return nil, ErrDriverUnsupported
}
