package main

import (
	"context"

	"github.com/desertthunder/downcida/internal/models"
	"github.com/urfave/cli/v3"
)

type formatOutput struct {
	Name      string `json:"name"`
	Profile   string `json:"profile"`
	Extension string `json:"extension"`
}

// Formats prints the output format catalog.
func (r *Runner) Formats(ctx context.Context, cmd *cli.Command) error {
	formats := models.Formats()

	if cmd.Bool("json") {
		outputs := make([]formatOutput, 0, len(formats))
		for _, f := range formats {
			outputs = append(outputs, formatOutput{Name: f.String(), Profile: f.Profile(), Extension: f.Extension()})
		}
		return r.writeJSON(outputs, true)
	}

	r.writePlainHeader("Formats")
	for _, f := range formats {
		r.writePlain("%-10s %-10s .%s\n", f.String(), f.Profile(), f.Extension())
	}
	return nil
}
