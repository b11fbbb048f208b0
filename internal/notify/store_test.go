package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testNotification(id string) Notification {
	return Notification{ID: id, EventType: "project_created", Title: "t", Message: "m"}
}

func TestStore_NewestFirst(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)
	s.Add(testNotification("a"))
	s.Add(testNotification("b"))
	s.Add(testNotification("c"))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "a", list[2].ID)
}

func TestStore_EvictsBeyondCapacity(t *testing.T) {
	s := NewStore(zap.NewNop(), 100)
	for i := 0; i < 150; i++ {
		s.Add(testNotification(fmt.Sprintf("n-%d", i)))
	}

	list := s.List()
	require.Len(t, list, 100)
	assert.Equal(t, "n-149", list[0].ID)
	assert.Equal(t, "n-50", list[99].ID)
}

func TestStore_ListReturnsCopy(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)
	s.Add(testNotification("a"))

	list := s.List()
	list[0].Read = true
	assert.False(t, s.List()[0].Read)
}

func TestStore_MarkRead(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)
	s.Add(testNotification("a"))
	s.Add(testNotification("b"))
	require.Equal(t, 2, s.Unread())

	s.MarkRead("a")
	assert.Equal(t, 1, s.Unread())

	// idempotent, and unknown ids are a no-op
	s.MarkRead("a")
	s.MarkRead("missing")
	assert.Equal(t, 1, s.Unread())
}

func TestStore_MarkReadBroadcastsOnlyOnChange(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)
	s.Add(testNotification("a"))

	calls := 0
	s.OnChange("counter", func([]Notification) { calls++ })

	s.MarkRead("a")
	assert.Equal(t, 1, calls)

	s.MarkRead("a")
	s.MarkRead("missing")
	assert.Equal(t, 1, calls)
}

func TestStore_MarkAllRead(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)
	for i := 0; i < 5; i++ {
		s.Add(testNotification(fmt.Sprintf("n-%d", i)))
	}

	s.MarkAllRead()
	assert.Equal(t, 0, s.Unread())
	for _, n := range s.List() {
		assert.True(t, n.Read)
	}
}

func TestStore_ChangeListenerReceivesSnapshot(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)

	var last []Notification
	s.OnChange("ui", func(list []Notification) { last = list })

	s.Add(testNotification("a"))
	require.Len(t, last, 1)

	s.Add(testNotification("b"))
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].ID)
}

func TestStore_DuplicateListenerKeyIsNoOp(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)

	calls := 0
	s.OnChange("ui", func([]Notification) { calls++ })
	s.OnChange("ui", func([]Notification) { calls += 100 })

	s.Add(testNotification("a"))
	assert.Equal(t, 1, calls)
}

func TestStore_RemoveChangeListener(t *testing.T) {
	s := NewStore(zap.NewNop(), 10)

	calls := 0
	s.OnChange("ui", func([]Notification) { calls++ })
	s.RemoveChangeListener("ui")
	s.RemoveChangeListener("missing")

	s.Add(testNotification("a"))
	assert.Equal(t, 0, calls)
}

func TestStore_DefaultCapacity(t *testing.T) {
	s := NewStore(zap.NewNop(), 0)
	for i := 0; i < DefaultMaxItems+5; i++ {
		s.Add(testNotification(fmt.Sprintf("n-%d", i)))
	}
	assert.Len(t, s.List(), DefaultMaxItems)
}
