package registry

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Instance describes one running copy of a service.
type Instance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

// ServiceRegistry defines the interface for service self-registration.
type ServiceRegistry interface {
	// Register announces inst together with its health check.
	Register(inst Instance, check *consulapi.AgentServiceCheck) error

	// Deregister removes a service instance using its unique ID.
	Deregister(id string) error
}

// InstanceID builds the conventional "<name>-<host>-<port>" instance id.
func InstanceID(name, host string, port int) string {
	return fmt.Sprintf("%s-%s-%d", name, host, port)
}
