package management

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"streamrouter/internal/broker"
	"streamrouter/internal/routing"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/models"
)

type memoryRepository struct {
	mu      sync.Mutex
	streams map[string]*routing.Stream
	nextID  int
	failing error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{streams: make(map[string]*routing.Stream)}
}

func (r *memoryRepository) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", prefix, r.nextID)
}

func cloneStream(s *routing.Stream) *routing.Stream {
	cp := *s
	cp.Rules = append([]routing.StreamRule{}, s.Rules...)
	return &cp
}

func (r *memoryRepository) ListStreams(context.Context) ([]routing.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return nil, r.failing
	}
	out := make([]routing.Stream, 0, len(r.streams))
	for _, s := range r.streams {
		out = append(out, *cloneStream(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *memoryRepository) GetStream(_ context.Context, id string) (*routing.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return nil, r.failing
	}
	s, ok := r.streams[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "stream '"+id+"' not found")
	}
	return cloneStream(s), nil
}

func (r *memoryRepository) CreateStream(_ context.Context, stream *routing.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stream.ID == "" {
		stream.ID = r.id("stream")
	}
	for i := range stream.Rules {
		stream.Rules[i].ID = r.id("rule")
		stream.Rules[i].StreamID = stream.ID
		stream.Rules[i].Position = i
	}
	r.streams[stream.ID] = cloneStream(stream)
	return nil
}

func (r *memoryRepository) UpdateStream(_ context.Context, stream *routing.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[stream.ID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	s.Title = stream.Title
	s.Description = stream.Description
	s.Disabled = stream.Disabled
	return nil
}

func (r *memoryRepository) SetStreamDisabled(_ context.Context, id string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	s.Disabled = disabled
	return nil
}

func (r *memoryRepository) DeleteStream(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(r.streams, id)
	return nil
}

func (r *memoryRepository) CreateRule(_ context.Context, rule *routing.StreamRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[rule.StreamID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	rule.ID = r.id("rule")
	rule.Position = len(s.Rules)
	s.Rules = append(s.Rules, *rule)
	return nil
}

func (r *memoryRepository) UpdateRule(_ context.Context, rule *routing.StreamRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[rule.StreamID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for i := range s.Rules {
		if s.Rules[i].ID == rule.ID {
			s.Rules[i] = *rule
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

func (r *memoryRepository) DeleteRule(_ context.Context, streamID, ruleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[streamID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for i := range s.Rules {
		if s.Rules[i].ID == ruleID {
			s.Rules = append(s.Rules[:i], s.Rules[i+1:]...)
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

type memoryAuditLog struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (a *memoryAuditLog) Record(_ context.Context, entry *models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *memoryAuditLog) List(_ context.Context, streamID string, limit int) ([]models.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.AuditEntry{}
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if streamID == "" || a.entries[i].StreamID == streamID {
			out = append(out, a.entries[i])
		}
	}
	return out, nil
}

type capturingProducer struct {
	mu   sync.Mutex
	msgs []broker.Message
}

func (p *capturingProducer) Publish(_ context.Context, _ string, msg broker.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturingProducer) Close() error { return nil }
