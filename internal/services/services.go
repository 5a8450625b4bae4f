// package services implements the client for the Lucida conversion API
package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/downcida/internal/shared"
)

const (
	defaultAPIURL        = "https://lucida.to"
	defaultJobURL        = "https://{server}.lucida.to"
	defaultSourceURL     = "https://open.spotify.com/track/%s"
	defaultUploadService = "pixeldrain"
	defaultPollInterval  = time.Second
	submitPath           = "/api/load?url=/api/fetch/stream/v2"
)

// Token is the API credential sent with every submission.
type Token struct {
	Primary string `json:"primary"`
	Expiry  int64  `json:"expiry"`
}

// ClientOpts configures a [Client]. Zero values fall back to the public API defaults.
type ClientOpts struct {
	APIURL         string
	JobURL         string // "{server}" is replaced by the job's server name
	SourceURL      string // printf pattern taking the track id
	Token          Token
	UploadService  string
	PollInterval   time.Duration
	MaxWait        time.Duration // 0 polls until the job ends or ctx is done
	RequestTimeout time.Duration // applies to submit and status calls, not the download stream
	CleanupPartial bool
	UserAgent      string
	HTTPClient     *http.Client
	Logger         *log.Logger
}

// Client drives the submit / poll / download protocol.
//
// A Client holds no per-request state, so one value can serve concurrent downloads.
type Client struct {
	apiURL         string
	jobURL         string
	sourceURL      string
	token          Token
	uploadService  string
	pollInterval   time.Duration
	maxWait        time.Duration
	requestTimeout time.Duration
	cleanupPartial bool
	userAgent      string
	httpClient     *http.Client
	logger         *log.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts ClientOpts) *Client {
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.JobURL == "" {
		opts.JobURL = defaultJobURL
	}
	if opts.SourceURL == "" {
		opts.SourceURL = defaultSourceURL
	}
	if opts.UploadService == "" {
		opts.UploadService = defaultUploadService
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Client{
		apiURL:         strings.TrimRight(opts.APIURL, "/"),
		jobURL:         strings.TrimRight(opts.JobURL, "/"),
		sourceURL:      opts.SourceURL,
		token:          opts.Token,
		uploadService:  opts.UploadService,
		pollInterval:   opts.PollInterval,
		maxWait:        opts.MaxWait,
		requestTimeout: opts.RequestTimeout,
		cleanupPartial: opts.CleanupPartial,
		userAgent:      opts.UserAgent,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
	}
}

// ClientOptsFromConfig maps the [lucida] and [download] config sections onto ClientOpts.
func ClientOptsFromConfig(cfg *shared.Config) ClientOpts {
	return ClientOpts{
		APIURL:         cfg.Lucida.APIURL,
		JobURL:         cfg.Lucida.JobURL,
		SourceURL:      cfg.Lucida.SourceURL,
		Token:          Token{Primary: cfg.Lucida.Token, Expiry: cfg.Lucida.TokenExpiry},
		UploadService:  cfg.Lucida.UploadService,
		PollInterval:   cfg.Lucida.PollInterval.Duration,
		MaxWait:        cfg.Lucida.MaxWait.Duration,
		RequestTimeout: cfg.Lucida.RequestTimeout.Duration,
		CleanupPartial: cfg.Download.CleanupPartial,
		UserAgent:      cfg.Lucida.UserAgent,
	}
}

// NewClientFromConfig builds a Client from the [lucida] and [download] config sections.
func NewClientFromConfig(cfg *shared.Config, logger *log.Logger) *Client {
	opts := ClientOptsFromConfig(cfg)
	opts.Logger = logger
	return NewClient(opts)
}

// PollInterval returns the delay between status queries.
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// SourceURL is the canonical streaming-service URL submitted for trackID.
func (c *Client) SourceURL(trackID string) string {
	return fmt.Sprintf(c.sourceURL, trackID)
}

// SubmitURL is the fixed submission endpoint.
func (c *Client) SubmitURL() string {
	return c.apiURL + submitPath
}

// StatusURL is the per-job status endpoint.
func (c *Client) StatusURL(serverName, handoffID string) string {
	base := strings.ReplaceAll(c.jobURL, "{server}", serverName)
	return base + "/api/fetch/request/" + url.PathEscape(handoffID)
}

// DownloadURL is the per-job artifact endpoint.
func (c *Client) DownloadURL(serverName, handoffID string) string {
	return c.StatusURL(serverName, handoffID) + "/download"
}
