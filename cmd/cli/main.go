// Command cli is a diagnostic tool for the bridge: it signs sample payloads
// the way Zoom does and replays them against a running instance, so webhook
// wiring can be checked without a public endpoint.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/syncwell/zoomcrm/internal/config"
	"github.com/syncwell/zoomcrm/internal/logger"
	"github.com/syncwell/zoomcrm/internal/version"
	"github.com/syncwell/zoomcrm/internal/webhook"
	"github.com/syncwell/zoomcrm/internal/zoom"
)

type cliOptions struct {
	configPath  string
	baseURL     string
	payloadPath string
	timeout     time.Duration
	signOnly    bool
	listUsers   bool
	showVersion bool
}

func main() {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("zoomcrm CLI %s\n", version.GetInfo())
		return
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if opts.listUsers {
		if err := listUsers(cfg, opts.timeout); err != nil {
			logger.Error("list users", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	payload, err := readPayload(opts.payloadPath)
	if err != nil {
		logger.Error("read payload", slog.Any("error", err))
		os.Exit(1)
	}

	signature := webhook.Sign(payload, cfg.Zoom.SecretToken)
	if opts.signOnly {
		fmt.Println(signature)
		return
	}

	baseURL := strings.TrimSpace(opts.baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Server.Addr)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	status, body, err := deliver(ctx, baseURL+"/zoom-webhook", payload, signature)
	if err != nil {
		logger.Error("deliver webhook", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("%d %s\n", status, body)
	if status >= http.StatusBadRequest {
		os.Exit(1)
	}
}

func parseFlags() cliOptions {
	opts := cliOptions{}
	flag.StringVar(&opts.configPath, "config", "", "path to config.toml (defaults to CONFIG_PATH or ./config.toml)")
	flag.StringVar(&opts.baseURL, "url", "", "bridge base URL (defaults to the configured listen address)")
	flag.StringVar(&opts.payloadPath, "payload", "", "path to the event JSON file, or - for stdin")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flag.BoolVar(&opts.signOnly, "sign", false, "print the signature for the payload and exit")
	flag.BoolVar(&opts.listUsers, "users", false, "list account users to verify the API credentials and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flag.Parse()

	if opts.configPath == "" {
		opts.configPath = os.Getenv("CONFIG_PATH")
	}
	return opts
}

func listUsers(cfg config.Config, timeout time.Duration) error {
	client := zoom.NewClient(logger.L,
		zoom.Credentials{
			AccountID:    cfg.Zoom.AccountID,
			ClientID:     cfg.Zoom.ClientID,
			ClientSecret: cfg.Zoom.ClientSecret,
		},
		zoom.Endpoints{
			API:   cfg.Zoom.APIBaseURL,
			OAuth: cfg.Zoom.OAuthURL,
		},
		timeout,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("%s\t%s %s\t%s\n", u.ID, u.FirstName, u.LastName, u.Email)
	}
	fmt.Printf("%d users\n", len(users))
	return nil
}

func readPayload(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, fmt.Errorf("payload file is required (use -payload)")
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

func defaultBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if addr == "" {
		return "http://localhost:8080"
	}
	return "http://" + addr
}

func deliver(ctx context.Context, target string, payload []byte, signature string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, signature)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
