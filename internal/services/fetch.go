package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/desertthunder/downcida/internal/models"
)

const chunkSize = 32 * 1024

// Fetch streams the finished artifact of handle into dir and returns the file path and bytes written.
//
// The file is named "<handoff>.<ext>" and is never overwritten. Each chunk is written before the next is read
// and reported as an [EventChunk]. On a mid-stream failure the partial file stays on disk unless the
// client was configured with CleanupPartial.
func (c *Client) Fetch(ctx context.Context, handle models.JobHandle, dir string, format models.AudioFormat, onProgress ProgressFunc) (string, int64, error) {
	path := filepath.Join(dir, handle.FileName(format))

	req, err := c.newRequest(ctx, http.MethodGet, c.DownloadURL(handle.ServerName, handle.HandoffID), nil)
	if err != nil {
		return "", 0, NewDownloadErrorWithCause(TransportError, "could not build download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, requestError(ctx, "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, NewDownloadError(TransportError, fmt.Sprintf("download failed with status %d", resp.StatusCode)).
			WithContext("handoff", handle.HandoffID)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		message := "could not create destination file"
		if os.IsExist(err) {
			message = "destination file already exists"
		}
		return "", 0, NewDownloadErrorWithCause(IOError, message, err).WithContext("path", path)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	written, streamErr := c.stream(ctx, resp.Body, file, total, onProgress)
	closeErr := file.Close()
	if streamErr == nil && closeErr != nil {
		streamErr = NewDownloadErrorWithCause(IOError, "could not close destination file", closeErr)
	}

	if streamErr != nil {
		var de *DownloadError
		if errors.As(streamErr, &de) {
			de.WithContext("path", path).WithContext("bytes", written)
		}
		if c.cleanupPartial {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				c.logger.Warn("could not remove partial file", "path", path, "error", err)
			}
		} else {
			c.logger.Warn("partial file left on disk", "path", path, "bytes", written)
		}
		return path, written, streamErr
	}

	c.logger.Debug("download finished", "path", path, "bytes", written)
	return path, written, nil
}

// stream copies body to w chunk by chunk, keeping read failures (transport) apart from write failures (io).
func (c *Client) stream(ctx context.Context, body io.Reader, w io.Writer, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err == nil && m < n {
				err = io.ErrShortWrite
			}
			if err != nil {
				return written, NewDownloadErrorWithCause(IOError, "could not write to destination file", err)
			}
			onProgress.emit(ProgressEvent{Kind: EventChunk, BytesWritten: written, TotalBytes: total})
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, requestError(ctx, "download stream interrupted", readErr)
		}
	}
}
