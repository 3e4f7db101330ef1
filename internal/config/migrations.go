package config

import (
	"fmt"
)

func (s *Store) migrate() error {
	for _, m := range s.dialect.migrations {
		if _, err := s.db.Exec(m); err != nil {
			if isExistsError(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
