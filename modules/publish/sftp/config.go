package sftp

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	defaultPort       = 22
	defaultTimeout    = 15 * time.Second
	defaultRemotePath = "/"
	defaultRetries    = 3
	defaultMaxElapsed = 30 * time.Second
)

// Config holds the SFTP publisher configuration.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// Password and/or KeyFile authenticate the user.
	Password      string `yaml:"password"`
	KeyFile       string `yaml:"key_file"`
	KeyPassphrase string `yaml:"key_passphrase"`

	// KnownHosts is an OpenSSH known_hosts file used to verify the server.
	KnownHosts string `yaml:"known_hosts"`

	// InsecureIgnoreHostKey accepts any host key. Only honoured when set explicitly.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key"`

	// Timeout bounds the TCP dial and SSH handshake.
	Timeout time.Duration `yaml:"timeout"`

	// RemotePath is the default upload directory.
	RemotePath string `yaml:"remote_path"`

	// Retries is the number of extra connection attempts.
	Retries *uint64 `yaml:"retries"`

	// MaxElapsed caps the total time spent retrying a connection.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

func (c *Config) defaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RemotePath == "" {
		c.RemotePath = defaultRemotePath
	}
	if c.Retries == nil {
		n := uint64(defaultRetries)
		c.Retries = &n
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = defaultMaxElapsed
	}
}

func (c *Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("sftp: host is required"))
	}
	if c.User == "" {
		errs = append(errs, errors.New("sftp: user is required"))
	}
	if c.Password == "" && c.KeyFile == "" {
		errs = append(errs, errors.New("sftp: password or key_file is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("sftp: invalid port %d", c.Port))
	}
	if c.KnownHosts == "" && !c.InsecureIgnoreHostKey {
		errs = append(errs, errors.New("sftp: known_hosts is required unless insecure_ignore_host_key is set"))
	}
	return errors.Join(errs...)
}
