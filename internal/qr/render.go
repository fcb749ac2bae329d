// Package qr renders ticket codes to PNG images on disk.
package qr

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
)

// Renderer writes QR images into Dir, one file per ticket named after
// its numeric id. Rendering is best-effort; a missing image never
// invalidates the ticket.
type Renderer struct {
	Dir string
	log zerolog.Logger
}

func New(dir string, log zerolog.Logger) *Renderer {
	return &Renderer{Dir: dir, log: log}
}

// Render writes one PNG per job. It keeps going past individual
// failures and returns the first error for the caller's log.
func (r *Renderer) Render(jobs []domain.QRJob) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create qr dir: %w", err)
	}
	var firstErr error
	for _, job := range jobs {
		path := filepath.Join(r.Dir, fmt.Sprintf("ticket-%d.png", job.TicketID))
		if err := qrcode.WriteFile(job.Code, qrcode.Medium, 256, path); err != nil {
			r.log.Warn().Err(err).Uint64("ticket_id", job.TicketID).Msg("qr render failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.log.Debug().Uint64("ticket_id", job.TicketID).Str("path", path).Msg("qr rendered")
	}
	return firstErr
}
