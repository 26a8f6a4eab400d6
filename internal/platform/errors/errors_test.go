package errors

import (
	"errors"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Wrap(CodeGrantExpired, "grant expired at 10:00", errors.New("jwt: token is expired"))

	if !errors.Is(err, New(CodeGrantExpired, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeGrantInvalid, "")) {
		t.Fatal("expected errors.Is to reject a different code")
	}
	if err.Unwrap() == nil {
		t.Fatal("expected wrapped cause to unwrap")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeInvalidChange, codes.InvalidArgument},
		{CodeProposalClosed, codes.FailedPrecondition},
		{CodeUnauthorized, codes.PermissionDenied},
		{CodeSessionFull, codes.ResourceExhausted},
		{CodeNotFound, codes.NotFound},
		{CodeParticipantAlreadyJoined, codes.AlreadyExists},
		{Code("SOMETHING_ELSE"), codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("GRPCCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestToGRPCStatusCarriesDetails(t *testing.T) {
	err := WithMetadata(CodeInsufficientResource, "pool would go negative", map[string]string{
		"resource_id": "gold",
	})

	st, ok := status.FromError(err.ToGRPCStatus("pt-BR", "Recursos insuficientes"))
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}

	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.Reason != string(CodeInsufficientResource) {
		t.Fatalf("expected ErrorInfo with reason, got %+v", info)
	}
	if info.Metadata["resource_id"] != "gold" {
		t.Fatalf("expected metadata to survive, got %+v", info.Metadata)
	}
	if localized == nil || localized.Locale != "pt-BR" {
		t.Fatalf("expected localized message, got %+v", localized)
	}
}
