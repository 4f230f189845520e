package grpc

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// Observer 接收每個 RPC 的結果
type Observer interface {
	ObserveGRPC(method, code string, duration time.Duration)
}

// UnaryServerInterceptor 記錄 log 與 metrics，並把 handler 的 panic 轉成 Internal
func UnaryServerInterceptor(logger *logging.Logger, observer Observer) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		method := path.Base(info.FullMethod)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panic", zap.String("method", info.FullMethod), zap.Any("panic", r), zap.Stack("stack"))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			elapsed := time.Since(start)
			if observer != nil {
				observer.ObserveGRPC(method, code.String(), elapsed)
			}
			switch code {
			case codes.OK:
				logger.Debug("grpc request", zap.String("method", method), zap.Duration("duration", elapsed))
			case codes.Internal, codes.Unknown:
				logger.Error("grpc request failed", zap.String("method", method), zap.Stringer("code", code), zap.Error(err))
			default:
				logger.Debug("grpc request rejected", zap.String("method", method), zap.Stringer("code", code), zap.Error(err))
			}
		}()
		return handler(ctx, req)
	}
}
