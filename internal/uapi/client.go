// Package uapi invokes the cPanel uapi command line tool and decodes its JSON envelope.
package uapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/utils"

	"go.uber.org/zap"
)

// featureUnavailablePhrase is what uapi puts in result.errors when the
// hosting package does not include a module.
const featureUnavailablePhrase = "You do not have the feature"

// statsDisplay is the StatsBar::get_stats display list.
var statsDisplay = strings.Join([]string{
	"bandwidthusage", "diskusage", "addondomains", "autoresponders", "cachedlistdiskusage",
	"cachedmysqldiskusage", "cpanelversion", "emailaccounts", "emailfilters", "emailforwarders",
	"filesusage", "ftpaccounts", "hostingpackage", "hostname", "kernelversion", "machinetype",
	"operatingsystem", "mailinglists", "mysqldatabases", "mysqldiskusage", "mysqlversion",
	"parkeddomains", "perlversion", "phpversion", "shorthostname", "sqldatabases", "subdomains",
	"cachedpostgresdiskusage", "postgresqldatabases", "postgresdiskusage",
}, "|")

var (
	// ErrTransport means the command could not be run, exited non-zero or wrote to stderr.
	ErrTransport = errors.New("uapi transport failure")
	// ErrMalformed means stdout was not a uapi JSON envelope.
	ErrMalformed = errors.New("malformed uapi response")
	// ErrFeatureUnavailable means the account's hosting package lacks the module.
	ErrFeatureUnavailable = errors.New("uapi feature unavailable")
	// ErrProvider means uapi reported a failure status with errors.
	ErrProvider = errors.New("uapi reported errors")
	// ErrNoData means the call succeeded but result.data was null.
	ErrNoData = errors.New("uapi returned no data")
)

// Observer receives one notification per uapi invocation.
type Observer interface {
	ObserveCall(module, function, outcome string, duration time.Duration)
}

// Call outcomes reported to the Observer.
const (
	OutcomeSuccess            = "success"
	OutcomeTransportError     = "transport_error"
	OutcomeMalformed          = "malformed"
	OutcomeFeatureUnavailable = "feature_unavailable"
	OutcomeProviderError      = "provider_error"
	OutcomeNoData             = "no_data"
)

// Outcome maps an error returned by the client to its observer outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrFeatureUnavailable):
		return OutcomeFeatureUnavailable
	case errors.Is(err, ErrNoData):
		return OutcomeNoData
	case errors.Is(err, ErrProvider):
		return OutcomeProviderError
	case errors.Is(err, ErrMalformed):
		return OutcomeMalformed
	default:
		return OutcomeTransportError
	}
}

// Result is the "result" object of a uapi JSON response.
type Result struct {
	Status   int             `json:"status"`
	Errors   []string        `json:"errors"`
	Messages []string        `json:"messages"`
	Data     json.RawMessage `json:"data"`

	// Stderr is whatever uapi wrote to its error stream, trimmed.
	Stderr string `json:"-"`
}

type envelope struct {
	Result *Result `json:"result"`
}

// HasData reports whether data was present and not null.
func (r *Result) HasData() bool {
	data := bytes.TrimSpace(r.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// Client runs uapi through a CommandExecutor.
type Client struct {
	executor utils.CommandExecutor
	path     string
	logger   *zap.Logger
	observer Observer
}

// NewClient creates a Client. observer may be nil.
func NewClient(executor utils.CommandExecutor, cfg *config.Config, logger *zap.Logger, observer Observer) *Client {
	return &Client{
		executor: executor,
		path:     cfg.UAPI.Path,
		logger:   logger,
		observer: observer,
	}
}

// Call runs `uapi --output=json <module> <function> [args...]` and decodes the
// envelope. Only transport and decoding failures are errors here; interpreting
// status, errors and data is left to the caller.
func (c *Client) Call(ctx context.Context, module, function string, args ...string) (*Result, error) {
	argv := append([]string{"--output=json", module, function}, args...)

	res, err := c.executor.Execute(ctx, c.path, argv...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, module, function, err)
	}

	stdout := bytes.TrimSpace(res.Stdout)
	stderr := strings.TrimSpace(string(res.Stderr))
	if res.ExitCode != 0 && len(stdout) == 0 {
		return nil, fmt.Errorf("%w: %s %s exited with status %d: %s", ErrTransport, module, function, res.ExitCode, stderr)
	}

	var env envelope
	if err := json.Unmarshal(stdout, &env); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrMalformed, module, function, err)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("%w: %s %s: missing result object", ErrMalformed, module, function)
	}
	env.Result.Stderr = stderr

	return env.Result, nil
}

// Fetch calls uapi for a category of records and applies the soft-failure
// policy shared by every category: stderr output, errors on a failed status
// and null data are all reported as errors the caller can degrade on.
func (c *Client) Fetch(ctx context.Context, module, function string, args ...string) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.fetch(ctx, module, function, args...)
	c.observe(module, function, err, time.Since(start))
	return data, err
}

func (c *Client) fetch(ctx context.Context, module, function string, args ...string) (json.RawMessage, error) {
	result, err := c.Call(ctx, module, function, args...)
	if err != nil {
		return nil, err
	}
	if result.Stderr != "" {
		return nil, fmt.Errorf("%w: %s %s: %s", ErrTransport, module, function, result.Stderr)
	}
	if result.Status == 0 && len(result.Errors) > 0 {
		message := result.Errors[0]
		if strings.Contains(message, featureUnavailablePhrase) {
			return nil, fmt.Errorf("%w: %s %s: %s", ErrFeatureUnavailable, module, function, message)
		}
		return nil, fmt.Errorf("%w: %s %s: %s", ErrProvider, module, function, message)
	}
	if !result.HasData() {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, module, function)
	}
	return result.Data, nil
}

// FetchList fetches a category and decodes result.data as a list of T.
func FetchList[T any](ctx context.Context, c *Client, module, function string, args ...string) (records []T, err error) {
	start := time.Now()
	defer func() { c.observe(module, function, err, time.Since(start)) }()

	data, err := c.fetch(ctx, module, function, args...)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s %s data: %w", ErrMalformed, module, function, err)
	}
	return records, nil
}

// GetStats returns the StatsBar items. Every failure is fatal for a scrape,
// so provider errors and null data are reported as malformed responses.
func (c *Client) GetStats(ctx context.Context) ([]StatItem, error) {
	var items []StatItem
	if err := c.primary(ctx, "StatsBar", "get_stats", &items, "display="+statsDisplay); err != nil {
		return nil, err
	}
	return items, nil
}

// GetUserInformation returns the account name and its assigned address.
func (c *Client) GetUserInformation(ctx context.Context) (*UserInformation, error) {
	var info UserInformation
	if err := c.primary(ctx, "Variables", "get_user_information", &info); err != nil {
		return nil, err
	}
	if !info.User.Present() || !info.IP.Present() {
		return nil, fmt.Errorf("%w: Variables get_user_information: missing user or ip", ErrMalformed)
	}
	return &info, nil
}

func (c *Client) primary(ctx context.Context, module, function string, out any, args ...string) (err error) {
	start := time.Now()
	defer func() { c.observe(module, function, err, time.Since(start)) }()

	result, err := c.Call(ctx, module, function, args...)
	if err != nil {
		return err
	}
	if result.Stderr != "" {
		c.logger.Warn("uapi wrote to stderr",
			zap.String("module", module),
			zap.String("function", function),
			zap.String("stderr", result.Stderr),
		)
	}
	if result.Status == 0 && len(result.Errors) > 0 {
		return fmt.Errorf("%w: %s %s: %s", ErrProvider, module, function, result.Errors[0])
	}
	if !result.HasData() {
		return fmt.Errorf("%w: %s %s: missing data", ErrMalformed, module, function)
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("%w: %s %s data: %w", ErrMalformed, module, function, err)
	}
	return nil
}

// GetResourceUsages returns the CloudLinux LVE usage records.
func (c *Client) GetResourceUsages(ctx context.Context) ([]ResourceUsage, error) {
	return FetchList[ResourceUsage](ctx, c, "ResourceUsage", "get_usages")
}

func (c *Client) ListMySQLDatabases(ctx context.Context) ([]Database, error) {
	return FetchList[Database](ctx, c, "Mysql", "list_databases")
}

func (c *Client) ListPostgresDatabases(ctx context.Context) ([]Database, error) {
	return FetchList[Database](ctx, c, "Postgresql", "list_databases")
}

func (c *Client) ListEmailAccounts(ctx context.Context) ([]Mailbox, error) {
	return FetchList[Mailbox](ctx, c, "Email", "list_pops_with_disk")
}

func (c *Client) ListFTPAccounts(ctx context.Context) ([]FTPAccount, error) {
	return FetchList[FTPAccount](ctx, c, "Ftp", "list_ftp_with_disk")
}

// Path returns the uapi binary the client invokes.
func (c *Client) Path() string {
	return c.path
}

func (c *Client) observe(module, function string, err error, duration time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveCall(module, function, Outcome(err), duration)
}
