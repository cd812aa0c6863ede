package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/dashbot/internal/config"
	"github.com/spf13/cobra"
)

// initAnswers collects the choices made in the init form.
type initAnswers struct {
	Token         string
	Mode          string
	WebhookURL    string
	WebhookSecret string
	AllowUsers    string
	History       string
	Publish       bool
	SFTPHost      string
	SFTPUser      string
	SFTPPassword  string
	SFTPPath      string
	Bind          string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Mode:     "polling",
		History:  "history.csv",
		SFTPPath: "/",
		Bind:     "127.0.0.1:8080",
	}
}

var tokenFormat = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

func initCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively write a starter dashbot.yaml and .env",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath := filepath.Join(dir, config.FileName)
			envPath := filepath.Join(dir, ".env")
			if !force {
				for _, p := range []string{cfgPath, envPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					}
				}
			}

			a := defaultAnswers()
			if err := initForm(&a).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errors.New("init aborted")
				}
				return err
			}

			files, err := renderInitFiles(a)
			if err != nil {
				return err
			}
			if err := writeInitFile(cfgPath, files.config, 0o644); err != nil {
				return err
			}
			if err := writeInitFile(envPath, files.env, 0o600); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s\nRun: dashbot start -c %s\n", cfgPath, envPath, cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory receiving the files")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func initForm(a *initAnswers) *huh.Form {
	required := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", what)
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Stored in .env, not in the config file.").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if !tokenFormat.MatchString(strings.TrimSpace(s)) {
						return errors.New("expected <bot_id>:<hash>")
					}
					return nil
				}).
				Value(&a.Token),
			huh.NewSelect[string]().
				Title("Update delivery").
				Options(
					huh.NewOption("Long polling", "polling"),
					huh.NewOption("Webhook through the gateway", "webhook"),
				).
				Value(&a.Mode),
			huh.NewInput().
				Title("Allowed Telegram user IDs").
				Description("Comma separated. Empty allows everyone.").
				Value(&a.AllowUsers),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.org/webhooks/telegram").
				Validate(required("webhook URL")).
				Value(&a.WebhookURL),
			huh.NewInput().
				Title("Webhook secret token").
				EchoMode(huh.EchoModePassword).
				Validate(required("webhook secret")).
				Value(&a.WebhookSecret),
		).WithHideFunc(func() bool { return a.Mode != "webhook" }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("History storage").
				Options(
					huh.NewOption("CSV files", "history.csv"),
					huh.NewOption("SQLite database", "history.sqlite"),
				).
				Value(&a.History),
			huh.NewInput().
				Title("Gateway listen address").
				Validate(required("listen address")).
				Value(&a.Bind),
			huh.NewConfirm().
				Title("Upload dashboards over SFTP?").
				Value(&a.Publish),
		),
		huh.NewGroup(
			huh.NewInput().Title("SFTP host").Validate(required("host")).Value(&a.SFTPHost),
			huh.NewInput().Title("SFTP user").Validate(required("user")).Value(&a.SFTPUser),
			huh.NewInput().Title("SFTP password").EchoMode(huh.EchoModePassword).Value(&a.SFTPPassword),
			huh.NewInput().Title("Remote directory").Value(&a.SFTPPath),
		).WithHideFunc(func() bool { return !a.Publish }),
	)
}

var configTmpl = template.Must(template.New("config").Parse(`# dashbot configuration. Values in ${...} come from the environment or .env.
version: "1"

modules:
  channel.telegram:
    token: ${BOT_TOKEN}
    mode: {{.Mode}}
{{- if eq .Mode "webhook"}}
    webhook_url: {{printf "%q" .WebhookURL}}
    webhook_secret: ${TELEGRAM_WEBHOOK_SECRET}
{{- end}}
{{- if .Users}}
    allow_users: [{{range $i, $u := .Users}}{{if $i}}, {{end}}{{printf "%q" $u}}{{end}}]
{{- end}}

  {{.History}}: {}

  gateway.http:
    bind: {{printf "%q" .Bind}}
{{- if .Publish}}

  publish.sftp:
    host: ${SFTP_HOST}
    user: ${SFTP_USER}
    password: ${SFTP_PASS:-}
    remote_path: ${SFTP_PATH:-/}
    known_hosts: ${HOME}/.ssh/known_hosts
{{- end}}

dashboard:
  retention_days: 7
  interval: 15s
  cleanup_schedule: "0 3 * * *"

bot:
  workers: 4
`))

var envTmpl = template.Must(template.New("env").Parse(`BOT_TOKEN={{.Token}}
{{- if eq .Mode "webhook"}}
TELEGRAM_WEBHOOK_SECRET={{.WebhookSecret}}
{{- end}}
{{- if .Publish}}
SFTP_HOST={{.SFTPHost}}
SFTP_USER={{.SFTPUser}}
SFTP_PASS={{.SFTPPassword}}
SFTP_PATH={{.SFTPPath}}
{{- end}}
`))

type initFiles struct {
	config []byte
	env    []byte
}

// renderInitFiles produces the starter config and .env for a.
func renderInitFiles(a initAnswers) (initFiles, error) {
	data := struct {
		initAnswers
		Users []string
	}{initAnswers: a}
	for _, u := range strings.Split(a.AllowUsers, ",") {
		if u = strings.TrimSpace(u); u != "" {
			data.Users = append(data.Users, u)
		}
	}
	data.Token = strings.TrimSpace(a.Token)
	if data.SFTPPath == "" {
		data.SFTPPath = "/"
	}

	var cfg, env bytes.Buffer
	if err := configTmpl.Execute(&cfg, data); err != nil {
		return initFiles{}, fmt.Errorf("rendering config: %w", err)
	}
	if err := envTmpl.Execute(&env, data); err != nil {
		return initFiles{}, fmt.Errorf("rendering .env: %w", err)
	}
	return initFiles{config: cfg.Bytes(), env: env.Bytes()}, nil
}

func writeInitFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
