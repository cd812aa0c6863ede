package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	pkgsftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Uploader publishes files over SFTP. It opens one connection per Publish
// call since uploads happen at most a few times a day.
type Uploader struct {
	cfg    Config
	logger *slog.Logger
	ssh    *ssh.ClientConfig
}

// NewUploader builds the SSH client configuration from cfg. cfg is
// defaulted and validated.
func NewUploader(cfg Config, logger *slog.Logger) (*Uploader, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		signer, err := loadSigner(cfg.KeyFile, cfg.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // explicit opt-in
	if !cfg.InsecureIgnoreHostKey {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &Uploader{
		cfg:    cfg,
		logger: logger,
		ssh: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.Timeout,
		},
	}, nil
}

func loadSigner(keyFile, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: read key_file: %w", err)
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, fmt.Errorf("sftp: parse key_file: %w", err)
	}
	return signer, nil
}

// Publish implements publish.Publisher.
func (u *Uploader) Publish(ctx context.Context, remoteDir string, files []string) error {
	if remoteDir == "" {
		remoteDir = u.cfg.RemotePath
	}

	conn, err := u.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	client, err := pkgsftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("sftp: start session: %w", err)
	}
	defer func() { _ = client.Close() }()

	if remoteDir != "/" && remoteDir != "." {
		if err := client.MkdirAll(remoteDir); err != nil {
			return fmt.Errorf("sftp: create %s: %w", remoteDir, err)
		}
	}

	var total int64
	for _, local := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		remote := path.Join(remoteDir, filepath.Base(local))
		n, err := upload(client, local, remote)
		if err != nil {
			return err
		}
		total += n
		u.logger.Info("file uploaded",
			"file", filepath.Base(local),
			"host", u.cfg.Host,
			"size", humanize.Bytes(uint64(n)),
		)
	}

	u.logger.Info("upload finished",
		"files", len(files),
		"remote_dir", remoteDir,
		"total", humanize.Bytes(uint64(total)),
	)
	return nil
}

// connect dials the server, retrying transient failures with exponential
// backoff. Authentication and host key failures are not retried.
func (u *Uploader) connect(ctx context.Context) (*ssh.Client, error) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxElapsedTime = u.cfg.MaxElapsed

	var (
		client  *ssh.Client
		attempt int
	)
	err := backoff.Retry(func() error {
		attempt++
		c, err := u.dial(ctx)
		if err != nil {
			if permanent(err) {
				return backoff.Permanent(err)
			}
			u.logger.Warn("sftp connect failed", "attempt", attempt, "error", err)
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(retry, *u.cfg.Retries), ctx))
	if err != nil {
		return nil, fmt.Errorf("sftp: connect %s: %w", u.cfg.addr(), err)
	}
	return client, nil
}

func (u *Uploader) dial(ctx context.Context) (*ssh.Client, error) {
	addr := u.cfg.addr()
	d := net.Dialer{Timeout: u.cfg.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	_ = nc.SetDeadline(time.Now().Add(u.cfg.Timeout))
	c, chans, reqs, err := ssh.NewClientConn(nc, addr, u.ssh)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	_ = nc.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func permanent(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	return strings.Contains(err.Error(), "unable to authenticate")
}

// upload copies local to a temporary remote name, then renames it over
// remote so that readers never see a partial file.
func upload(client *pkgsftp.Client, local, remote string) (int64, error) {
	src, err := os.Open(local)
	if err != nil {
		return 0, fmt.Errorf("sftp: open %s: %w", local, err)
	}
	defer func() { _ = src.Close() }()

	tmp := remote + ".part"
	dst, err := client.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("sftp: create %s: %w", tmp, err)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = client.Remove(tmp)
		return 0, fmt.Errorf("sftp: write %s: %w", tmp, err)
	}

	if err := client.PosixRename(tmp, remote); err != nil {
		// Servers without the posix-rename extension refuse to overwrite.
		_ = client.Remove(remote)
		if err := client.Rename(tmp, remote); err != nil {
			_ = client.Remove(tmp)
			return 0, fmt.Errorf("sftp: rename %s: %w", remote, err)
		}
	}
	return n, nil
}
