// Package captcha provides solvers for the portal's login captcha: one
// shelling out to a local recognizer process and one calling a solver
// service over http. both satisfy the scraper's solver interface.
package captcha

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/captcha")

// CommandSolver runs an external recognizer once per captcha. the image is
// handed over as a temp file path argument and the recognized text is read
// from stdout, whatever the recognizer writes to stderr is carried in the
// error on failure.
type CommandSolver struct {
	// program to run, e.g. "python3"
	Command string
	// arguments placed before the image path
	Args []string
}

func (s CommandSolver) Solve(ctx context.Context, image []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "captcha:CommandSolver")
	defer span.End()

	file, err := os.CreateTemp("", "captcha-*.png")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp image")
		return "", err
	}
	defer os.Remove(file.Name())

	_, err = file.Write(image)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write temp image")
		return "", err
	}

	args := append(append([]string{}, s.Args...), file.Name())
	cmd := exec.CommandContext(ctx, s.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recognizer process failed")
		return "", fmt.Errorf("recognizer %q: %w: %s", s.Command, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}
