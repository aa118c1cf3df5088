package conversation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/breathebhutan/tashi/internal/types"
)

// persistedConversation is the on-disk shape of one conversation. Message
// history is deliberately excluded; restored conversations rebuild it empty.
type persistedConversation struct {
	State                  string            `json:"state"`
	Preferences            types.Preferences `json:"preferences"`
	Recommendations        []types.Record    `json:"recommendations,omitempty"`
	SelectedRecommendation *types.Record     `json:"selected_recommendation,omitempty"`
	ContactInfo            types.ContactInfo `json:"contact_info"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// SaveState writes every active conversation to path so dialogues survive a
// restart.
func (m *ManagerImpl) SaveState(path string) error {
	m.mu.RLock()
	persisted := make(map[string]persistedConversation, len(m.sessions))
	for userID, sess := range m.sessions {
		sess.mu.Lock()
		conv := sess.conv
		sess.mu.Unlock()

		persisted[userID] = persistedConversation{
			State:                  conv.State.String(),
			Preferences:            conv.Preferences,
			Recommendations:        conv.Recommendations,
			SelectedRecommendation: conv.SelectedRecommendation,
			ContactInfo:            conv.ContactInfo,
			UpdatedAt:              conv.UpdatedAt,
		}
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding conversation snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing conversation snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing conversation snapshot: %w", err)
	}

	m.logger.Info("Saved conversation snapshot", slog.Int("count", len(persisted)), slog.String("path", path))
	return nil
}

// LoadState restores conversations from a snapshot file. A missing file is
// a clean start. A corrupt file resets the conversation set to empty and
// returns the error; partial restores are never kept.
func (m *ManagerImpl) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("No conversation snapshot found, starting fresh", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("error reading conversation snapshot: %w", err)
	}

	var persisted map[string]persistedConversation
	if err := json.Unmarshal(data, &persisted); err != nil {
		m.resetAll()
		return fmt.Errorf("error decoding conversation snapshot: %w", err)
	}

	restored := make(map[string]*session, len(persisted))
	for userID, pc := range persisted {
		state, err := types.ParseState(pc.State)
		if err != nil {
			m.resetAll()
			return fmt.Errorf("error restoring conversation for user %s: %w", userID, err)
		}
		updatedAt := pc.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = m.now()
		}
		restored[userID] = &session{conv: types.Conversation{
			State:                  state,
			Preferences:            pc.Preferences,
			Recommendations:        pc.Recommendations,
			SelectedRecommendation: pc.SelectedRecommendation,
			ContactInfo:            pc.ContactInfo,
			UpdatedAt:              updatedAt,
		}}
	}

	m.mu.Lock()
	m.sessions = restored
	m.mu.Unlock()

	m.logger.Info("Restored conversation snapshot", slog.Int("count", len(restored)), slog.String("path", path))
	return nil
}

func (m *ManagerImpl) resetAll() {
	m.mu.Lock()
	m.sessions = make(map[string]*session)
	m.mu.Unlock()
}
