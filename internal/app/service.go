package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"questionnaire/api/internal/config"
	"questionnaire/api/internal/history"
	"questionnaire/api/internal/jsondoc"
	"questionnaire/api/internal/store"
)

type configStore interface {
	Read() (any, error)
	Write([]byte) ([]byte, error)
	Ping() error
}

type profileLog interface {
	Append([]byte) ([]byte, error)
	FindByIdentifier(string) ([]byte, error)
	Ping() error
}

type historyRecorder interface {
	Record(doc []byte, author, message string) (history.Revision, bool, error)
	List(limit int) ([]history.Revision, error)
	Get(hash string) ([]byte, error)
}

type Service struct {
	cfg      config.Config
	config   configStore
	profiles profileLog
	history  historyRecorder

	// saveMu keeps config writes and their history commits in the same order.
	saveMu sync.Mutex
}

func New(cfg config.Config, configs configStore, profiles profileLog) *Service {
	return &Service{
		cfg:      cfg,
		config:   configs,
		profiles: profiles,
	}
}

// EnableHistory records every saved configuration with h.
func (s *Service) EnableHistory(h historyRecorder) {
	s.history = h
}

func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// ReadConfig returns the stored configuration as indented JSON.
func (s *Service) ReadConfig() ([]byte, error) {
	value, err := s.config.Read()
	if err != nil {
		if errors.Is(err, store.ErrMalformedInput) {
			log.Printf("config store holds unparseable content: %v", err)
			return nil, domainError(http.StatusInternalServerError, "CONFIG_UNREADABLE", "Stored configuration is unreadable", nil)
		}
		return nil, err
	}
	return jsondoc.Pretty(value)
}

func (s *Service) SaveConfig(raw []byte) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	pretty, err := s.config.Write(raw)
	if err != nil {
		return err
	}
	if s.history == nil {
		return nil
	}
	rev, recorded, err := s.history.Record(pretty, s.cfg.HistoryAuthor, "Save configuration")
	if err != nil {
		// the document is already stored; history is best effort
		log.Printf("WARNING: config history not recorded: %v", err)
		return nil
	}
	if recorded {
		log.Printf("config revision %s recorded (+%d -%d)", rev.Hash, rev.Added, rev.Removed)
	}
	return nil
}

func (s *Service) ConfigHistory(limit int) ([]history.Revision, error) {
	if s.history == nil {
		return nil, errHistoryDisabled
	}
	return s.history.List(limit)
}

func (s *Service) ConfigRevision(hash string) ([]byte, error) {
	if s.history == nil {
		return nil, errHistoryDisabled
	}
	return s.history.Get(hash)
}

func (s *Service) AppendProfile(raw []byte) error {
	_, err := s.profiles.Append(raw)
	return err
}

// FindProfile returns the first stored profile line containing id.
func (s *Service) FindProfile(id string) ([]byte, error) {
	line, err := s.profiles.FindByIdentifier(id)
	if errors.Is(err, store.ErrBadRequest) {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "uuid is required", nil)
	}
	return line, err
}

func (s *Service) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.config.Ping(); err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	if err := s.profiles.Ping(); err != nil {
		return fmt.Errorf("profile log: %w", err)
	}
	return nil
}
