package flavour

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest is the frozen build manifest emitted at package time. Packaged
// builds read their flavour from it instead of the command line, so a
// release binary can never be pointed at the wrong network by accident.
type Manifest struct {
	Network       string `json:"network"`
	LdkPort       uint16 `json:"ldk_port,omitempty"`
	AppNameSuffix string `json:"app_name_suffix,omitempty"`
}

// LoadManifest reads a build manifest from disk and resolves it into a
// Flavour.
func LoadManifest(path string) (*Flavour, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read build manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid build manifest: %w", err)
	}

	network, err := ParseNetwork(m.Network)
	if err != nil {
		return nil, fmt.Errorf("invalid build manifest: %w", err)
	}

	return &Flavour{
		Network:       network,
		LdkPort:       m.LdkPort,
		AppNameSuffix: m.AppNameSuffix,
	}, nil
}
