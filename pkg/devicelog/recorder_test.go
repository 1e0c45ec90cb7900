package devicelog

import (
	"testing"

	"github.com/nsyszr/flowcount/pkg/model"
	"github.com/nsyszr/flowcount/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (p *mockPublisher) PublishEvent(m *model.Event) error {
	return p.Called(m).Error(0)
}

func (p *mockPublisher) PublishTraffic(u model.TrafficUpdate) error {
	return p.Called(u).Error(0)
}

func (p *mockPublisher) Close() {}

func TestRecordStoresAndPublishes(t *testing.T) {
	store := memory.NewStore()
	pub := &mockPublisher{}
	pub.On("PublishEvent", mock.MatchedBy(func(m *model.Event) bool {
		return m.Topic == model.TopicResetFailed && m.ID == 1
	})).Return(nil).Once()

	l := New(store, pub)
	cam := model.Camera{Name: "north", IP: "10.0.0.1", Port: 5006, Family: model.FamilyStream}
	l.Record("hall", cam, model.TopicResetFailed, map[string]string{"reason": "reset failed"})

	pub.AssertExpectations(t)

	m, err := store.Events().FindByID(1)
	require.NoError(t, err)
	assert.Equal(t, "hall", m.Scene)
	assert.Equal(t, "10.0.0.1:5006", m.CameraKey)
	assert.Equal(t, "stream", m.Family)
	assert.JSONEq(t, `{"reason":"reset failed"}`, m.Details)
}

func TestRecordWithoutDetails(t *testing.T) {
	store := memory.NewStore()
	l := New(store, nil)

	l.Record("hall", model.Camera{IP: "10.0.0.2", Port: 8000, Family: model.FamilyNative}, model.TopicDeviceOnline, nil)

	m, err := store.Events().FindByID(1)
	require.NoError(t, err)
	assert.Equal(t, "{}", m.Details)
	assert.Equal(t, "native", m.Family)
}

func TestDiscard(t *testing.T) {
	Discard().Record("hall", model.Camera{}, model.TopicSessionClosed, nil)
}
