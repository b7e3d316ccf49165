package metrics

import (
	"context"
	"errors"
	"sync"

	"wanhealth/internal/model"
)

// Sink receives the records of one finished cycle.
type Sink interface {
	Write(ctx context.Context, items []model.InterfaceRecord) error
	Close() error
}

// CSVSink appends to day-partitioned files under Dir. Appends are
// serialized so a file only ever has one writer.
type CSVSink struct {
	mu       sync.Mutex
	dir      string
	location string
}

func NewCSVSink(dir, location string) *CSVSink {
	return &CSVSink{dir: dir, location: location}
}

func (s *CSVSink) Write(_ context.Context, items []model.InterfaceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AppendCSV(s.dir, items, s.location)
}

func (s *CSVSink) Close() error { return nil }

// Multi writes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, items []model.InterfaceRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
