package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	collection = "game_outcomes"
)

// record is the JSON shape written to Nakama storage for one player's
// result in one finished game.
type record struct {
	RoomCode   string `json:"room_code"`
	DidWin     bool   `json:"did_win"`
	RecordedAt string `json:"recorded_at"`
}

// NakamaReporter persists outcomes using runtime.StorageWrite, one object
// per (user, game), grounded on the teacher's welcome-bonus adapter's use
// of the same API for a one-record-per-user write.
type NakamaReporter struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

// NewNakamaReporter constructs a Reporter backed by Nakama storage.
func NewNakamaReporter(nk runtime.NakamaModule, logger runtime.Logger) *NakamaReporter {
	return &NakamaReporter{nk: nk, logger: logger}
}

// ReportOutcomes writes one storage object per player with a non-empty
// UserID, skipping anonymous seats. Only players with a non-null user_id
// are reported, per spec.md §4.6.
func (r *NakamaReporter) ReportOutcomes(ctx context.Context, roomCode string, outcomes []PlayerOutcome) error {
	writes := make([]*runtime.StorageWrite, 0, len(outcomes))
	for _, o := range outcomes {
		if o.UserID == "" {
			continue
		}
		value, err := json.Marshal(record{
			RoomCode:   roomCode,
			DidWin:     o.DidWin,
			RecordedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal outcome for user %s: %w", o.UserID, err)
		}
		writes = append(writes, &runtime.StorageWrite{
			Collection:      collection,
			Key:             roomCode,
			UserID:          o.UserID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		})
	}
	if len(writes) == 0 {
		return nil
	}

	if _, err := r.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to write game outcomes for room %s: %w", roomCode, err)
	}
	return nil
}

var _ Reporter = (*NakamaReporter)(nil)
