package transcript

import (
	"context"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// Recorder is the call-close sink: Postgres is the source of truth, the S3
// archive is best effort.
type Recorder struct {
	store    *Store
	archiver *Archiver
	logger   *logging.Logger
}

func NewRecorder(store *Store, archiver *Archiver, logger *logging.Logger) *Recorder {
	if store == nil {
		panic("transcript: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{store: store, archiver: archiver, logger: logger}
}

// Record persists the finished call.
func (r *Recorder) Record(ctx context.Context, state engine.ConversationState) error {
	rec := recordFromState(state)
	if err := r.store.Save(ctx, rec); err != nil {
		return err
	}
	if r.archiver.Enabled() {
		if err := r.archiver.Archive(ctx, rec); err != nil {
			r.logger.Warn("transcript archive failed", "error", err, "call_id", rec.CallID)
		}
	}
	return nil
}
