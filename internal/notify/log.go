package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/account"
)

var _ account.Notifier = LogNotifier{}

// LogNotifier writes activation requests to the request logger. It is used
// when no broker is configured.
type LogNotifier struct{}

// SendActivation logs the activation link.
func (LogNotifier) SendActivation(ctx context.Context, a account.Activation) error {
	zctx.From(ctx).Info("Activation email",
		zap.String("email", a.Email),
		zap.String("link", a.Link),
	)
	return nil
}
