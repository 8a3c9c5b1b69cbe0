package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/google/uuid"
)

const deviceIDFile = "device_id"

// resolveDeviceID returns the configured device id or the one stored under
// the state directory, generating and storing it on first use.
func resolveDeviceID(c *config.Config) (string, error) {
	if c.DeviceID != "" {
		return c.DeviceID, nil
	}

	dir, err := filex.EnsureStateDir(c.StateDir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, deviceIDFile)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}
