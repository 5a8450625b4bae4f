package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/shared"
)

// serverLabel guards the server name before it becomes part of a hostname.
var serverLabel = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// handoffID guards the handoff before it becomes a URL segment and a file name.
var handoffID = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

type submitAccount struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type submitUpload struct {
	Enabled bool   `json:"enabled"`
	Service string `json:"service"`
}

// SubmitRequest is the JSON body of a conversion submission.
type SubmitRequest struct {
	URL       string        `json:"url"`
	Metadata  bool          `json:"metadata"`
	Private   bool          `json:"private"`
	Handoff   bool          `json:"handoff"`
	Account   submitAccount `json:"account"`
	Upload    submitUpload  `json:"upload"`
	Downscale string        `json:"downscale"`
	Token     Token         `json:"token"`
}

type submitResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Handoff string `json:"handoff"`
	Server  string `json:"server"`
}

// NewSubmitRequest builds the submission payload for a track.
func (c *Client) NewSubmitRequest(trackID, region, profile string) SubmitRequest {
	if region == "" {
		region = models.DefaultRegion
	}
	return SubmitRequest{
		URL:       c.SourceURL(trackID),
		Metadata:  false,
		Private:   true,
		Handoff:   true,
		Account:   submitAccount{Type: "country", ID: region},
		Upload:    submitUpload{Enabled: false, Service: c.uploadService},
		Downscale: profile,
		Token:     c.token,
	}
}

// Submit sends a conversion job for trackID and returns its handle.
//
// The API's success flag decides the outcome: false yields [SubmissionRejected] with the server's error text,
// true without both handoff and server yields [MalformedResponse].
func (c *Client) Submit(ctx context.Context, trackID, region, profile string) (*models.JobHandle, error) {
	if c.token.Primary == "" {
		return nil, fmt.Errorf("%w: no API token configured (set lucida.token or %s)", shared.ErrMissingCredentials, shared.EnvToken)
	}

	payload := c.NewSubmitRequest(trackID, region, profile)
	c.logger.Debug("submitting conversion job", "track", trackID, "region", payload.Account.ID, "downscale", profile)

	resp, err := c.postJSON(ctx, c.SubmitURL(), payload)
	if err != nil {
		return nil, requestError(ctx, "submission request failed", err)
	}

	var body submitResponse
	if err := resp.Decode(&body); err != nil {
		if !resp.OK() {
			return nil, NewDownloadError(TransportError, fmt.Sprintf("submission failed with status %d", resp.StatusCode))
		}
		return nil, NewDownloadErrorWithCause(MalformedResponse, "submission response is not JSON", err)
	}

	if body.Success == nil || !*body.Success {
		message := body.Error
		if message == "" {
			message = "Unknown error"
		}
		return nil, NewDownloadError(SubmissionRejected, message).WithContext("status", resp.StatusCode)
	}

	if body.Handoff == "" {
		return nil, NewDownloadError(MalformedResponse, "no handoff value in response")
	}
	if body.Server == "" {
		return nil, NewDownloadError(MalformedResponse, "no server value in response")
	}
	if !handoffID.MatchString(body.Handoff) {
		return nil, NewDownloadError(MalformedResponse, fmt.Sprintf("invalid handoff %q", body.Handoff))
	}
	if !serverLabel.MatchString(body.Server) {
		return nil, NewDownloadError(MalformedResponse, fmt.Sprintf("invalid server name %q", body.Server))
	}

	return &models.JobHandle{HandoffID: body.Handoff, ServerName: body.Server}, nil
}
