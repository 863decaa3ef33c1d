package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"book-predictor/internal/features"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

var (
	ErrNotFound   = errors.New("schema version not found")
	ErrNoActive   = errors.New("no active schema version")
	ErrNoRollback = errors.New("no previous version available for rollback")
	ErrExists     = errors.New("schema version already exists")
)

// Artifact is a stored schema version.
type Artifact struct {
	Version    string              `json:"version"`
	Schema     features.SchemaFile `json:"schema"`
	Source     string              `json:"source,omitempty"` // file it was imported from
	ImportedAt time.Time           `json:"imported_at"`
	Active     bool                `json:"-"`
}

// Import stores sf under its version. The first imported version becomes
// active. Re-importing an existing version fails with ErrExists.
func (s *Store) Import(sf features.SchemaFile, source string) (Artifact, error) {
	if sf.Version == "" {
		return Artifact{}, fmt.Errorf("schema has no version")
	}
	if _, err := features.FromFile(sf); err != nil {
		return Artifact{}, fmt.Errorf("invalid schema %s: %w", sf.Version, err)
	}

	art := Artifact{
		Version:    sf.Version,
		Schema:     sf,
		Source:     source,
		ImportedAt: time.Now().UTC(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(schemasBucket))
		if b.Get([]byte(sf.Version)) != nil {
			return fmt.Errorf("%w: %s", ErrExists, sf.Version)
		}

		data, err := json.Marshal(art)
		if err != nil {
			return fmt.Errorf("marshal artifact: %w", err)
		}
		if err := b.Put([]byte(sf.Version), data); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(metaBucket))
		if meta.Get([]byte(activeKey)) == nil {
			art.Active = true
			return meta.Put([]byte(activeKey), []byte(sf.Version))
		}
		return nil
	})
	if err != nil {
		return Artifact{}, err
	}

	log.Info().Str("version", art.Version).Int("columns", len(sf.Columns)).Bool("active", art.Active).Msg("schema imported")
	return art, nil
}

// Get returns the artifact stored under version.
func (s *Store) Get(version string) (Artifact, error) {
	var art Artifact
	err := s.db.View(func(tx *bbolt.Tx) error {
		a, err := getArtifact(tx, version)
		art = a
		return err
	})
	return art, err
}

// Active returns the active artifact.
func (s *Store) Active() (Artifact, error) {
	var art Artifact
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get([]byte(activeKey))
		if v == nil {
			return ErrNoActive
		}
		a, err := getArtifact(tx, string(v))
		art = a
		return err
	})
	return art, err
}

// Schema loads version as a features.Schema, or the active version when
// version is empty.
func (s *Store) Schema(version string) (*features.Schema, error) {
	var (
		art Artifact
		err error
	)
	if version == "" {
		art, err = s.Active()
	} else {
		art, err = s.Get(version)
	}
	if err != nil {
		return nil, err
	}
	return features.FromFile(art.Schema)
}

// List returns all artifacts, newest import first.
func (s *Store) List() ([]Artifact, error) {
	var arts []Artifact
	err := s.db.View(func(tx *bbolt.Tx) error {
		active := string(tx.Bucket([]byte(metaBucket)).Get([]byte(activeKey)))
		return tx.Bucket([]byte(schemasBucket)).ForEach(func(k, v []byte) error {
			var art Artifact
			if err := json.Unmarshal(v, &art); err != nil {
				log.Warn().Err(err).Str("version", string(k)).Msg("skipping malformed artifact")
				return nil
			}
			art.Active = art.Version == active
			arts = append(arts, art)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(arts, func(i, j int) bool {
		return arts[i].ImportedAt.After(arts[j].ImportedAt)
	})
	return arts, nil
}

// Activate makes version the active schema. The previously active version
// is pushed onto the history used by Rollback.
func (s *Store) Activate(version string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := getArtifact(tx, version); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(metaBucket))
		current := meta.Get([]byte(activeKey))
		if string(current) == version {
			return nil
		}
		if current != nil {
			history, err := readHistory(meta)
			if err != nil {
				return err
			}
			if err := writeHistory(meta, append(history, string(current))); err != nil {
				return err
			}
		}
		return meta.Put([]byte(activeKey), []byte(version))
	})
	if err != nil {
		return err
	}

	log.Info().Str("version", version).Msg("schema activated")
	return nil
}

// Rollback re-activates the version that was active before the current
// one and returns it.
func (s *Store) Rollback() (string, error) {
	var restored string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta.Get([]byte(activeKey)) == nil {
			return ErrNoActive
		}

		history, err := readHistory(meta)
		if err != nil {
			return err
		}
		schemas := tx.Bucket([]byte(schemasBucket))
		for len(history) > 0 {
			prev := history[len(history)-1]
			history = history[:len(history)-1]
			if schemas.Get([]byte(prev)) != nil {
				restored = prev
				break
			}
		}
		if restored == "" {
			return ErrNoRollback
		}

		if err := writeHistory(meta, history); err != nil {
			return err
		}
		return meta.Put([]byte(activeKey), []byte(restored))
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("version", restored).Msg("schema rolled back")
	return restored, nil
}

func getArtifact(tx *bbolt.Tx, version string) (Artifact, error) {
	data := tx.Bucket([]byte(schemasBucket)).Get([]byte(version))
	if data == nil {
		return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, version)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return Artifact{}, fmt.Errorf("unmarshal artifact %s: %w", version, err)
	}
	art.Active = string(tx.Bucket([]byte(metaBucket)).Get([]byte(activeKey))) == version
	return art, nil
}

func readHistory(meta *bbolt.Bucket) ([]string, error) {
	data := meta.Get([]byte(historyKey))
	if data == nil {
		return nil, nil
	}
	var history []string
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return history, nil
}

func writeHistory(meta *bbolt.Bucket, history []string) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return meta.Put([]byte(historyKey), data)
}
