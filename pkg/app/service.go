package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
)

// ServiceName is the name dashbot is installed under in the OS service manager.
const ServiceName = "dashbot"

// serviceStopTimeout bounds how long the service manager waits for shutdown.
const serviceStopTimeout = 45 * time.Second

// ServiceActions lists the actions accepted by ControlService.
var ServiceActions = service.ControlAction[:]

// program adapts Run to the kardianos/service start/stop callbacks.
type program struct {
	params RunParams
	cancel context.CancelFunc
	done   chan error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- Run(ctx, p.params) }()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return errors.New("service: shutdown timed out")
	}
}

// NewService describes dashbot to the OS service manager. The installed
// service runs "dashbot service run" with the absolute config path.
func NewService(params RunParams) (service.Service, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("service: resolving config path: %w", err)
		}
		params.ConfigPath = abs
		args = append(args, "--config", abs)
	}

	cfg := &service.Config{
		Name:        ServiceName,
		DisplayName: "Dashbot",
		Description: "Telegram bot turning daily ОКК reports into dashboards.",
		Arguments:   args,
		Option: service.KeyValue{
			"Restart":           "on-failure",
			"SuccessExitStatus": "1 2 8 SIGKILL",
		},
	}
	if params.ConfigPath != "" {
		cfg.WorkingDirectory = filepath.Dir(params.ConfigPath)
	}

	s, err := service.New(&program{params: params}, cfg)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return s, nil
}

// ControlService runs a service manager action: "run" runs in the
// foreground under the manager, anything else is passed to service.Control
// (install, uninstall, start, stop, restart).
func ControlService(action string, params RunParams) error {
	s, err := NewService(params)
	if err != nil {
		return err
	}
	if action == "run" {
		return s.Run()
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	return nil
}
