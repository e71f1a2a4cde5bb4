// Package env provides identity of the host running a bridge or tool.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an application specific ID identifying the machine.
// The host name is used where no machine ID is available.
func MachineID() string {
	if id, err := machineid.ProtectedID("framelink"); err == nil {
		return id
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return "unknown"
}

// ClientID builds an MQTT client ID for a role, unique per machine.
func ClientID(role string) string {
	id := MachineID()
	if len(id) > 12 {
		id = id[:12]
	}
	return "framelink-" + role + "-" + id
}
