package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config contains the identity and cluster membership of a node. The
// configuration is fixed for the lifetime of the process; there is no
// dynamic membership.
type Config struct {
	// The unique ID of this node. Writes performed on this node carry
	// this ID for conflict resolution, so it must differ from the ID of
	// every other node in the cluster. A random ID is generated if empty.
	ID string `json:"id"`

	// The host:port address the node serves its API on.
	ListenAddress string `json:"listen_address"`

	// The addresses of the other nodes in the cluster, as host:port or
	// full URLs. The local node must not be included.
	Peers []string `json:"peers"`
}

// LoadConfig reads a Config from the JSON file at the provided path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}

	config := Config{}
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}

	return config, nil
}

// validate rejects configurations that cannot identify or address the node.
func (c Config) validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen address must not be empty")
	}
	for _, peer := range c.Peers {
		if peer == "" {
			return errors.New("peer address must not be empty")
		}
	}
	return nil
}
