package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	Base
	opts Options
}

func (s *stubProvider) Initialize(context.Context) error { return nil }
func (s *stubProvider) ValidateConfig() error            { return s.Config().Validate() }
func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...ConfigOption) (*Response, error) {
	return s.GenerateChat(ctx, []Message{UserMessage(prompt)}, opts...)
}

func (s *stubProvider) GenerateChat(_ context.Context, msgs []Message, opts ...ConfigOption) (*Response, error) {
	cfg := s.CallConfig(opts...)
	return &Response{Content: msgs[len(msgs)-1].Content, Model: cfg.Model}, nil
}

func stubFactory(name string) Factory {
	return func(cfg Config, opts Options) (Provider, error) {
		p := &stubProvider{opts: opts}
		p.Init(name, cfg)
		return p, nil
	}
}

func TestRegistry_Create_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register("Stub", stubFactory("stub"))

	for _, name := range []string{"stub", "STUB", " Stub "} {
		p, err := r.Create(name, NewConfig(WithModel("test-model")), WithAPIKey("k"))
		require.NoError(t, err, name)
		assert.Equal(t, "stub", p.Name())
		assert.Equal(t, "test-model", p.Config().Model)
		assert.Equal(t, "k", p.(*stubProvider).opts.APIKey)
	}
}

func TestRegistry_Create_Unknown(t *testing.T) {
	r := NewRegistry()
	r.Register("b", stubFactory("b"))
	r.Register("a", stubFactory("a"))
	_, err := r.Create("unknown_provider", DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	var upe *UnknownProviderError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, []string{"a", "b"}, upe.Registered)
}

func TestRegistry_Create_FactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register("bad", func(Config, Options) (Provider, error) { return nil, boom })
	_, err := r.Create("bad", DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Register("", stubFactory("x")) })
	assert.Panics(t, func() { r.Register("x", nil) })

	r.Register("x", stubFactory("x"))
	assert.True(t, r.Has("X"))
	assert.Equal(t, []string{"x"}, r.Names())
	assert.True(t, r.Unregister("x"))
	assert.False(t, r.Unregister("x"))
	assert.False(t, r.Has("x"))
}
