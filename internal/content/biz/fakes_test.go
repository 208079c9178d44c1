package biz

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// memBlobStore is an in-memory BlobStore for engine tests
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	writeErr  error
	copyErr   error
	deleteErr map[string]error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{
		objects:   make(map[string][]byte),
		deleteErr: make(map[string]error),
	}
}

func (s *memBlobStore) name(namespace, key string) string {
	return namespace + "/" + key
}

func (s *memBlobStore) List(ctx context.Context, namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := namespace + "/"
	var keys []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, strings.TrimPrefix(name, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memBlobStore) Exists(ctx context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[s.name(namespace, key)]
	return ok, nil
}

func (s *memBlobStore) Write(ctx context.Context, namespace, key string, body io.Reader, size int64, contentType string) error {
	if s.writeErr != nil {
		return s.writeErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[s.name(namespace, key)] = data
	return nil
}

func (s *memBlobStore) Read(ctx context.Context, namespace, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[s.name(namespace, key)]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Copy(ctx context.Context, srcNamespace, srcKey, dstNamespace, dstKey string) error {
	if s.copyErr != nil {
		return s.copyErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[s.name(srcNamespace, srcKey)]
	if !ok {
		return ErrBlobNotFound
	}
	s.objects[s.name(dstNamespace, dstKey)] = data
	return nil
}

func (s *memBlobStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.name(namespace, key)
	if err, ok := s.deleteErr[name]; ok {
		return err
	}
	if _, ok := s.objects[name]; !ok {
		return ErrBlobNotFound
	}
	delete(s.objects, name)
	return nil
}

// drop removes an object directly, bypassing Delete semantics
func (s *memBlobStore) drop(namespace, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, s.name(namespace, key))
}

func (s *memBlobStore) has(namespace, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[s.name(namespace, key)]
	return ok
}

// publishedEvent records one Publish call
type publishedEvent struct {
	Topic   string
	Type    string
	Payload interface{}
}

// memPublisher records broadcasts for assertions
type memPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *memPublisher) Publish(topic, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Payload: payload})
}

func (p *memPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *memPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return publishedEvent{}
	}
	return p.events[len(p.events)-1]
}
