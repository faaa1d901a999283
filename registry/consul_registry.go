package registry

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type consulRegistry struct {
	client *consulapi.Client
	logger *zap.SugaredLogger
}

// Ensure consulRegistry implements ServiceRegistry
var _ ServiceRegistry = (*consulRegistry)(nil)

// NewConsulRegistry creates a registry backed by the Consul agent at
// address and checks that the agent answers.
func NewConsulRegistry(address string, logger *zap.SugaredLogger) (ServiceRegistry, error) {
	consulConfig := consulapi.DefaultConfig()
	consulConfig.Address = address

	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	node, err := client.Agent().NodeName()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to consul agent at %s: %w", address, err)
	}
	logger.Infow("Connected to Consul agent", "address", address, "node", node)

	return &consulRegistry{
		client: client,
		logger: logger.Named("consul"),
	}, nil
}

// Register registers a service instance with Consul, including a health check.
func (r *consulRegistry) Register(inst Instance, check *consulapi.AgentServiceCheck) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      inst.ID,
		Name:    inst.Name,
		Tags:    inst.Tags,
		Port:    inst.Port,
		Address: inst.Address,
		Check:   check,
		Meta:    map[string]string{"protocol": "http"},
	}

	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register service '%s': %w", inst.Name, err)
	}
	r.logger.Infow("Registered service with Consul", "service_id", inst.ID, "service_name", inst.Name, "address", inst.Address, "port", inst.Port)
	return nil
}

// Deregister removes a service instance from Consul.
func (r *consulRegistry) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("failed to deregister service '%s': %w", id, err)
	}
	r.logger.Infow("Deregistered service from Consul", "service_id", id)
	return nil
}

// CreateHTTPCheck creates a Consul HTTP health check against
// http://host:port/path.
func CreateHTTPCheck(serviceID, host string, port int, path, interval, timeout string) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        fmt.Sprintf("check_%s_http", serviceID),
		Name:                           fmt.Sprintf("HTTP Check for %s", serviceID),
		HTTP:                           fmt.Sprintf("http://%s:%d%s", host, port, path),
		Method:                         "GET",
		Interval:                       interval,
		Timeout:                        timeout,
		DeregisterCriticalServiceAfter: "1m",
	}
}
