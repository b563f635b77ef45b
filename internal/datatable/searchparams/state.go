package searchparams

import (
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/notify"
)

const invalidParamsWarning = "The link contains invalid table filters; showing the last valid results instead."

// State holds the last-known-good params of one table and keeps it in sync
// with the URL. Malformed input never replaces the current state.
type State struct {
	mu       sync.Mutex
	codec    *Codec
	columns  []models.ColumnDef
	current  models.SearchParams
	logger   *zap.Logger
	notifier notify.Notifier
}

// NewState starts from the codec defaults.
func NewState(codec *Codec, defs []models.ColumnDef, logger *zap.Logger, notifier notify.Notifier) *State {
	if codec == nil {
		codec = NewCodec()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		codec:    codec,
		columns:  defs,
		current:  codec.Defaults(),
		logger:   logger,
		notifier: notify.Or(notifier),
	}
}

// Codec returns the codec used by the state.
func (s *State) Codec() *Codec {
	return s.codec
}

// Current returns the validated params.
func (s *State) Current() models.SearchParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Values returns the minimal URL values for the current params.
func (s *State) Values() url.Values {
	return s.codec.Encode(s.Current())
}

// Apply decodes URL values. On failure the previous params are kept, a
// warning is logged and surfaced, and the error is returned.
func (s *State) Apply(values url.Values) (models.SearchParams, bool, error) {
	params, err := s.codec.Decode(values)
	if err == nil {
		err = s.codec.Validate(params, s.columns)
	}
	if err != nil {
		s.reject(values.Encode(), err)
		return s.Current(), false, err
	}
	return s.store(params)
}

// Set validates params built by widgets. changed is true only when the
// validated params differ structurally from the previous ones.
func (s *State) Set(params models.SearchParams) (models.SearchParams, bool, error) {
	params = Clean(params)
	if err := s.codec.Validate(params, s.columns); err != nil {
		s.reject(s.codec.EncodeQuery(params), err)
		return s.Current(), false, err
	}
	return s.store(params)
}

func (s *State) store(params models.SearchParams) (models.SearchParams, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Equal(params) {
		return s.current.Clone(), false, nil
	}
	s.current = params.Clone()
	return s.current.Clone(), true, nil
}

func (s *State) reject(raw string, err error) {
	s.logger.Warn("rejected search params", zap.String("query", raw), zap.Error(err))
	s.notifier.Notify(notify.LevelWarning, invalidParamsWarning)
}
