// Package sftp provides the "publish.sftp" module, which uploads generated
// dashboards to a web host over SFTP.
package sftp

import (
	"fmt"
	"log/slog"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/publish"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ publish.Publisher = (*Uploader)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Module registers an *Uploader as the publish.publisher service.
type Module struct {
	config   Config
	logger   *slog.Logger
	uploader *Uploader
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "publish.sftp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sftp: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	u, err := NewUploader(m.config, ctx.Logger)
	if err != nil {
		return err
	}
	m.uploader = u
	ctx.RegisterService(publish.ServiceName, u)

	if m.config.InsecureIgnoreHostKey {
		m.logger.Warn("sftp host key verification disabled", "host", m.config.Host)
	}
	m.logger.Info("sftp publisher provisioned",
		"host", m.config.Host,
		"user", m.config.User,
		"remote_path", m.config.RemotePath,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Uploader returns the provisioned publisher.
func (m *Module) Uploader() *Uploader {
	return m.uploader
}
