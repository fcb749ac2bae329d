package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
)

// Inline is the in-process fallback dispatcher used when no broker is
// configured. Tasks run in their own goroutines detached from the
// request context, matching the at-most-once behavior of the broker
// path without durability.
type Inline struct {
	svc      *domain.Service
	mailer   Sender
	renderer ImageRenderer
	log      zerolog.Logger
}

func NewInline(mailer Sender, renderer ImageRenderer, log zerolog.Logger) *Inline {
	return &Inline{mailer: mailer, renderer: renderer, log: log}
}

// Bind attaches the domain service after construction. The service
// needs a FollowUp at construction time and the inline dispatcher
// needs the service to run promotions, so the cycle is closed here.
func (i *Inline) Bind(svc *domain.Service) { i.svc = svc }

// PromotionNeeded runs the sweep in the background, detached from the
// request that freed the capacity.
func (i *Inline) PromotionNeeded(_ context.Context, eventID uint64) {
	if i.svc == nil {
		return
	}
	go func() {
		promoted, err := i.svc.PromoteWaitlist(context.Background(), eventID)
		if err != nil {
			i.log.Warn().Err(err).Uint64("event_id", eventID).Msg("inline promotion sweep failed")
			return
		}
		if len(promoted) > 0 {
			i.log.Info().Uint64("event_id", eventID).Int("promoted", len(promoted)).Msg("waitlist promoted")
		}
	}()
}

func (i *Inline) Notify(_ context.Context, n domain.Notification) {
	go func() {
		if err := i.mailer.Send(n); err != nil {
			i.log.Warn().Err(err).Str("to", n.Email).Msg("inline notification failed")
		}
	}()
}

func (i *Inline) RenderQR(_ context.Context, jobs []domain.QRJob) {
	if len(jobs) == 0 {
		return
	}
	go func() {
		if err := i.renderer.Render(jobs); err != nil {
			i.log.Warn().Err(err).Int("jobs", len(jobs)).Msg("inline qr render failed")
		}
	}()
}
