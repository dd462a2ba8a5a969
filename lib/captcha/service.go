package captcha

import (
	"context"
	"fmt"
	"time"

	"golestan-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// ServiceSolver posts captcha images to a recognizer service and reads the
// recognized text back as plain text.
type ServiceSolver struct {
	http *resty.Client
}

func NewServiceSolver(baseUrl string) *ServiceSolver {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "lib/captcha/http")
	return &ServiceSolver{http: client}
}

func (s *ServiceSolver) Solve(ctx context.Context, image []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "captcha:ServiceSolver")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/png").
		SetBody(image).
		Post("/solve")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solver request failed")
		return "", err
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("solver service replied %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "solver replied with failure status")
		return "", err
	}
	return string(res.Body()), nil
}
