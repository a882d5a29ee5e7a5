package fakestaterepo

import (
	"context"
	"sync"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
)

var _ sessions.Repo = (*FakeStateRepo)(nil)

type FakeStateRepo struct {
	states map[string]sessions.State
	lock   sync.RWMutex
}

func NewFakeStateRepo() *FakeStateRepo {
	return &FakeStateRepo{
		states: make(map[string]sessions.State),
	}
}

func (sr *FakeStateRepo) Save(_ context.Context, key string, state sessions.State) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.states[key] = state
	return nil
}

func (sr *FakeStateRepo) Load(_ context.Context, key string) (sessions.State, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	state, ok := sr.states[key]
	if !ok {
		return sessions.State{}, svcerrors.ErrSessionNotFound
	}
	return state, nil
}

func (sr *FakeStateRepo) Delete(_ context.Context, key string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	delete(sr.states, key)
	return nil
}
