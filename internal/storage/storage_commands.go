package storage

import "slices"

func (s *Storage) DisableCategory(guildID, category string) error {
	_, err := s.UpdateSettings(guildID, func(g *GuildSettings) error {
		if !slices.Contains(g.DisabledCategories, category) {
			g.DisabledCategories = append(g.DisabledCategories, category)
		}
		return nil
	})
	return err
}

func (s *Storage) EnableCategory(guildID, category string) error {
	_, err := s.UpdateSettings(guildID, func(g *GuildSettings) error {
		g.DisabledCategories = slices.DeleteFunc(g.DisabledCategories, func(c string) bool { return c == category })
		return nil
	})
	return err
}

func (s *Storage) IsCategoryDisabled(guildID, category string) (bool, error) {
	g, err := s.Settings(guildID)
	if err != nil {
		return false, err
	}
	return g.IsCategoryDisabled(category), nil
}

// AppendCommandHistory records a command execution, keeping the latest 20.
func (s *Storage) AppendCommandHistory(guildID string, rec CommandHistory) error {
	_, err := s.UpdateSettings(guildID, func(g *GuildSettings) error {
		g.CommandsHistory = append(g.CommandsHistory, rec)
		return nil
	})
	return err
}

func (s *Storage) CommandHistory(guildID string) ([]CommandHistory, error) {
	g, err := s.Settings(guildID)
	if err != nil {
		return nil, err
	}
	return g.CommandsHistory, nil
}

func manifestKey(scope string) string {
	if scope == "" {
		return "manifest:global"
	}
	return "manifest:" + scope
}

// ManifestHash returns the hash of the manifest last pushed to scope ("" for
// global), or "" if none was recorded.
func (s *Storage) ManifestHash(scope string) (string, error) {
	var h string
	if _, err := s.docs.get(manifestKey(scope), &h); err != nil {
		return "", err
	}
	return h, nil
}

func (s *Storage) SetManifestHash(scope, hash string) error {
	return s.docs.put(manifestKey(scope), hash)
}
