package golestan

import "context"

// CaptchaSolver turns a captcha image into its recognized text. the solver
// is an external capability; a failed or empty recognition is handled by
// the login loop as one failed attempt, never as a fatal error.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

type CaptchaSolverFunc func(ctx context.Context, image []byte) (string, error)

func (f CaptchaSolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
