// package formatter renders download history in various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/desertthunder/downcida/internal/shared"
)

// Formats lists the accepted export format names.
var Formats = []string{"json", "csv", "markdown", "txt"}

// HistoryEntry is the serializable view of a [models.DownloadRecord].
type HistoryEntry struct {
	ID           string    `json:"id"`
	TrackID      string    `json:"track_id"`
	Region       string    `json:"region"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	Handoff      string    `json:"handoff,omitempty"`
	Server       string    `json:"server,omitempty"`
	FilePath     string    `json:"file_path,omitempty"`
	Bytes        int64     `json:"bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToEntries converts records for serialization, keeping their order.
func ToEntries(records []*models.DownloadRecord) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HistoryEntry{
			ID:           r.ID(),
			TrackID:      r.TrackID(),
			Region:       r.Region(),
			Format:       r.Format(),
			Status:       string(r.Status()),
			Handoff:      r.Handoff(),
			Server:       r.Server(),
			FilePath:     r.FilePath(),
			Bytes:        r.Bytes(),
			ContentType:  r.ContentType(),
			ElapsedMS:    r.Elapsed().Milliseconds(),
			ErrorKind:    r.ErrorKind(),
			ErrorMessage: r.ErrorMessage(),
			CreatedAt:    r.CreatedAt(),
		})
	}
	return entries
}

// ExportToJSON renders records as an indented JSON array
func ExportToJSON(records []*models.DownloadRecord) ([]byte, error) {
	return shared.MarshalJSON(ToEntries(records), true)
}

// ExportToCSV renders records with columns: ID, Track, Region, Format, Status, File, Bytes, Elapsed (ms), Error, Created
func ExportToCSV(records []*models.DownloadRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Track", "Region", "Format", "Status", "File", "Bytes", "Elapsed (ms)", "Error", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range ToEntries(records) {
		record := []string{
			e.ID,
			e.TrackID,
			e.Region,
			e.Format,
			e.Status,
			e.FilePath,
			strconv.FormatInt(e.Bytes, 10),
			strconv.FormatInt(e.ElapsedMS, 10),
			errorText(e),
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders records as a Markdown table with a summary header
func ExportToMarkdown(records []*models.DownloadRecord) ([]byte, error) {
	var buf bytes.Buffer
	completed, failed, total := summarize(records)

	buf.WriteString("# Download History\n\n")
	buf.WriteString(fmt.Sprintf("**Downloads**: %d (%d completed, %d failed)\n", len(records), completed, failed))
	buf.WriteString(fmt.Sprintf("**Total size**: %s\n\n", humanize.Bytes(uint64(total))))

	buf.WriteString("| Track | Format | Status | File | Size | Time |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, e := range ToEntries(records) {
		file := e.FilePath
		if e.Status == string(models.RecordFailed) {
			file = errorText(e)
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d ms |\n",
			e.TrackID, e.Format, e.Status, escapeCell(file), humanize.Bytes(uint64(e.Bytes)), e.ElapsedMS))
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per record
func ExportToText(records []*models.DownloadRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Downloads: %d\n\n", len(records)))
	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, FormatRecord(r)))
	}

	return buf.Bytes(), nil
}

// FormatRecord is the single-line summary used by text export and the CLI history listing
func FormatRecord(r *models.DownloadRecord) string {
	when := humanize.Time(r.CreatedAt())
	switch r.Status() {
	case models.RecordCompleted:
		return fmt.Sprintf("✓ %s [%s] %s (%s, %d ms) %s",
			r.TrackID(), r.Format(), r.FilePath(), humanize.Bytes(uint64(r.Bytes())), r.Elapsed().Milliseconds(), when)
	case models.RecordFailed:
		return fmt.Sprintf("✗ %s [%s] %s: %s %s", r.TrackID(), r.Format(), r.ErrorKind(), r.ErrorMessage(), when)
	default:
		return fmt.Sprintf("… %s [%s] pending %s", r.TrackID(), r.Format(), when)
	}
}

// Export renders records in the named format.
func Export(records []*models.DownloadRecord, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return ExportToJSON(records)
	case "csv":
		return ExportToCSV(records)
	case "markdown", "md":
		return ExportToMarkdown(records)
	case "txt", "text":
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (expected one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// WriteExport renders records in format and writes them to path.
//
// Defaults to downcida_history.{ext} when path is empty.
func WriteExport(records []*models.DownloadRecord, format, path string) (string, error) {
	data, err := Export(records, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "downcida_history." + extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "csv"
	case "markdown", "md":
		return "md"
	case "txt", "text":
		return "txt"
	default:
		return "json"
	}
}

func summarize(records []*models.DownloadRecord) (completed, failed int, total int64) {
	for _, r := range records {
		switch r.Status() {
		case models.RecordCompleted:
			completed++
			total += r.Bytes()
		case models.RecordFailed:
			failed++
		}
	}
	return completed, failed, total
}

func errorText(e HistoryEntry) string {
	if e.ErrorKind == "" {
		return ""
	}
	return e.ErrorKind + ": " + e.ErrorMessage
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
