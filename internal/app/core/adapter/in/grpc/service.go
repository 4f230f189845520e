package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務全名
const ServiceName = "ledger.v1.LedgerService"

// 方法名稱
const (
	MethodCreateAccount    = "CreateAccount"
	MethodGetAccount       = "GetAccount"
	MethodDeposit          = "Deposit"
	MethodWithdraw         = "Withdraw"
	MethodTransfer         = "Transfer"
	MethodListTransactions = "ListTransactions"
	MethodListAccounts     = "ListAccounts"
)

// LedgerServiceServer 所有訊息皆為 google.protobuf.Struct，欄位名稱與 HTTP JSON 相同
type LedgerServiceServer interface {
	CreateAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Deposit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Transfer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv LedgerServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// LedgerServiceDesc 手寫的 ServiceDesc (不需要 protoc 產生程式碼)
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateAccount, Handler: unaryHandler(MethodCreateAccount, LedgerServiceServer.CreateAccount)},
		{MethodName: MethodGetAccount, Handler: unaryHandler(MethodGetAccount, LedgerServiceServer.GetAccount)},
		{MethodName: MethodDeposit, Handler: unaryHandler(MethodDeposit, LedgerServiceServer.Deposit)},
		{MethodName: MethodWithdraw, Handler: unaryHandler(MethodWithdraw, LedgerServiceServer.Withdraw)},
		{MethodName: MethodTransfer, Handler: unaryHandler(MethodTransfer, LedgerServiceServer.Transfer)},
		{MethodName: MethodListTransactions, Handler: unaryHandler(MethodListTransactions, LedgerServiceServer.ListTransactions)},
		{MethodName: MethodListAccounts, Handler: unaryHandler(MethodListAccounts, LedgerServiceServer.ListAccounts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}
