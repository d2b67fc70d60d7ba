package payoswebhook

import (
	"context"
	"fmt"

	"github.com/cakeverse/cakeverse-backend/internal/deposits"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

type notificationHandler interface {
	HandleGatewayNotification(ctx context.Context, notification deposits.Notification) (deposits.Outcome, error)
}

type signatureVerifier interface {
	VerifyWebhook(data map[string]any, signature string) bool
}

type ServiceParams struct {
	Deposits notificationHandler
	Verifier signatureVerifier
	// AllowUnsigned accepts the flat layout, which carries no signature.
	AllowUnsigned bool
	Logger        *logger.Logger
}

// Service authenticates gateway deliveries and hands them to the deposit
// reconciler.
type Service struct {
	deposits      notificationHandler
	verifier      signatureVerifier
	allowUnsigned bool
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Deposits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deposit service required")
	}
	if params.Verifier == nil && !params.AllowUnsigned {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		deposits:      params.Deposits,
		verifier:      params.Verifier,
		allowUnsigned: params.AllowUnsigned,
		logg:          params.Logger,
	}, nil
}

// Parse normalizes raw and authenticates it according to its layout.
func (s *Service) Parse(raw []byte) (*Delivery, error) {
	delivery, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	switch delivery.Layout {
	case LayoutEmpty:
		return delivery, nil
	case LayoutEnvelope:
		if s.verifier == nil {
			if s.allowUnsigned {
				return delivery, nil
			}
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature cannot be verified")
		}
		if delivery.Signature == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing")
		}
		if !s.verifier.VerifyWebhook(delivery.Data, delivery.Signature) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid")
		}
		return delivery, nil
	default:
		if !s.allowUnsigned {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unsigned webhook payloads are disabled")
		}
		return delivery, nil
	}
}

// Handle applies an authenticated delivery.
func (s *Service) Handle(ctx context.Context, delivery *Delivery) (deposits.Outcome, error) {
	if delivery == nil {
		return deposits.OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "webhook delivery required")
	}
	outcome, err := s.deposits.HandleGatewayNotification(ctx, delivery.Notification)
	if err != nil {
		return outcome, err
	}
	if !delivery.Notification.Probe {
		s.logg.Info(ctx, fmt.Sprintf("payos delivery %s handled: %s", delivery.Key(), outcome))
	}
	return outcome, nil
}
