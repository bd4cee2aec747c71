package services

import (
	"context"
	"log/slog"

	"github.com/bigfin/core/internal/platform/logging"
)

// BaseService provides the logging helpers every engine embeds. User/role
// authorization is handled upstream of the core; tenant scoping is
// enforced directly by each repository query instead.
type BaseService struct{}

func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}
