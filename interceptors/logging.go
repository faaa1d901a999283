package interceptors

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

// ZapLogger adapts a zap logger to the go-grpc-middleware logging interface.
// fields arrive as alternating key/value pairs.
func ZapLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, fields ...any) {
		zf := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			zf = append(zf, zap.Any(key, fields[i+1]))
		}

		switch lvl {
		case logging.LevelDebug:
			l.Debug(msg, zf...)
		case logging.LevelInfo:
			l.Info(msg, zf...)
		case logging.LevelWarn:
			l.Warn(msg, zf...)
		default:
			l.Error(msg, zf...)
		}
	})
}

// UnaryLogging logs finished unary calls. Health probes arrive every few
// seconds, so successful calls log at debug level.
func UnaryLogging(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return logging.UnaryServerInterceptor(ZapLogger(logger),
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithLevels(healthCodeToLevel),
	)
}

// StreamLogging is the streaming counterpart of UnaryLogging; it covers
// Health.Watch.
func StreamLogging(logger *zap.Logger) grpc.StreamServerInterceptor {
	return logging.StreamServerInterceptor(ZapLogger(logger),
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
		logging.WithLevels(healthCodeToLevel),
	)
}

func healthCodeToLevel(code codes.Code) logging.Level {
	if code == codes.OK {
		return logging.LevelDebug
	}
	return logging.DefaultServerCodeToLevel(code)
}
