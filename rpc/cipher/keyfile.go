package cipher

import (
	"fmt"
	"github.com/spf13/afero"
)

// LoadKey reads a raw 32 byte key file
func LoadKey(fs afero.Fs, path string) ([]byte, error) {
	key, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key file %s has %d bytes, expected %d", path, len(key), KeySize)
	}
	return key, nil
}
