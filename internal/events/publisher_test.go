package events

import (
	"context"
	"testing"

	"github.com/tOgg1/geoforce/internal/models"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *models.Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  &models.Event{Type: models.EventTypeAgentCreated, EntityType: models.EntityTypeAgent, EntityID: "1"},
			want:   true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name:   "event type filter matches",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeStoreCommitted}},
			event:  &models.Event{Type: models.EventTypeStoreCommitted, EntityType: models.EntityTypeStore},
			want:   true,
		},
		{
			name:   "event type filter rejects non-matching",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeStoreCommitted}},
			event:  &models.Event{Type: models.EventTypeTaskUpdated, EntityType: models.EntityTypeTask, EntityID: "t1"},
			want:   false,
		},
		{
			name: "multiple event types - matches any",
			filter: Filter{EventTypes: []models.EventType{
				models.EventTypeTaskCreated,
				models.EventTypeTaskDeleted,
			}},
			event: &models.Event{Type: models.EventTypeTaskDeleted, EntityType: models.EntityTypeTask, EntityID: "t1"},
			want:  true,
		},
		{
			name:   "entity type filter rejects non-matching",
			filter: Filter{EntityTypes: []models.EntityType{models.EntityTypeTask}},
			event:  &models.Event{Type: models.EventTypeAgentUpdated, EntityType: models.EntityTypeAgent, EntityID: "1"},
			want:   false,
		},
		{
			name:   "entity ID filter rejects non-matching",
			filter: Filter{EntityID: "1"},
			event:  &models.Event{Type: models.EventTypeAgentUpdated, EntityType: models.EntityTypeAgent, EntityID: "2"},
			want:   false,
		},
		{
			name: "combined filters - all must match",
			filter: Filter{
				EventTypes:  []models.EventType{models.EventTypeAgentUpdated},
				EntityTypes: []models.EntityType{models.EntityTypeAgent},
				EntityID:    "1",
			},
			event: &models.Event{Type: models.EventTypeAgentUpdated, EntityType: models.EntityTypeAgent, EntityID: "1"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(tt.event)
			if got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInMemoryPublisher_Subscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	handler := func(context.Context, *models.Event) {}

	if err := pub.Subscribe("sub-1", Filter{}, handler); err != nil {
		t.Errorf("Subscribe() error = %v, want nil", err)
	}
	if pub.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", pub.SubscriberCount())
	}
	if err := pub.Subscribe("sub-1", Filter{}, handler); err != ErrSubscriptionExists {
		t.Errorf("Subscribe() duplicate error = %v, want %v", err, ErrSubscriptionExists)
	}
	if err := pub.Subscribe("", Filter{}, handler); err != ErrInvalidSubscriptionID {
		t.Errorf("Subscribe() empty ID error = %v, want %v", err, ErrInvalidSubscriptionID)
	}
	if err := pub.Subscribe("sub-2", Filter{}, nil); err != ErrNilHandler {
		t.Errorf("Subscribe() nil handler error = %v, want %v", err, ErrNilHandler)
	}
}

func TestInMemoryPublisher_Unsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("sub-1", Filter{}, func(context.Context, *models.Event) {})

	if err := pub.Unsubscribe("sub-1"); err != nil {
		t.Errorf("Unsubscribe() error = %v, want nil", err)
	}
	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}
	if err := pub.Unsubscribe("sub-1"); err != ErrSubscriptionNotFound {
		t.Errorf("Unsubscribe() non-existent error = %v, want %v", err, ErrSubscriptionNotFound)
	}
}

func TestInMemoryPublisher_DeliversInSubscriptionOrder(t *testing.T) {
	pub := NewInMemoryPublisher()
	var order []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		_ = pub.Subscribe(id, Filter{}, func(context.Context, *models.Event) {
			order = append(order, id)
		})
	}

	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeStoreCommitted})

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("delivery order = %v", order)
	}
}

func TestInMemoryPublisher_PublishWithFilter(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var commits, taskEvents int
	_ = pub.Subscribe("commits", Filter{
		EventTypes: []models.EventType{models.EventTypeStoreCommitted},
	}, func(context.Context, *models.Event) { commits++ })
	_ = pub.Subscribe("tasks", Filter{
		EntityTypes: []models.EntityType{models.EntityTypeTask},
	}, func(context.Context, *models.Event) { taskEvents++ })

	pub.Publish(ctx, &models.Event{Type: models.EventTypeTaskCreated, EntityType: models.EntityTypeTask, EntityID: "t9"})
	pub.Publish(ctx, &models.Event{Type: models.EventTypeStoreCommitted, EntityType: models.EntityTypeStore, Changes: 1})

	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
	if taskEvents != 1 {
		t.Errorf("taskEvents = %d, want 1", taskEvents)
	}
}

func TestInMemoryPublisher_PublishNilEvent(t *testing.T) {
	pub := NewInMemoryPublisher()
	called := false
	_ = pub.Subscribe("sub-1", Filter{}, func(context.Context, *models.Event) { called = true })

	pub.Publish(context.Background(), nil)

	if called {
		t.Error("handler was called for nil event")
	}
}

func TestInMemoryPublisher_HandlerMayUnsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	calls := 0
	_ = pub.Subscribe("once", Filter{}, func(context.Context, *models.Event) {
		calls++
		_ = pub.Unsubscribe("once")
	})

	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeStoreCommitted})
	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeStoreCommitted})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestInMemoryPublisher_PanickingHandlerIsIsolated(t *testing.T) {
	pub := NewInMemoryPublisher()
	reached := false
	_ = pub.Subscribe("broken", Filter{}, func(context.Context, *models.Event) { panic("boom") })
	_ = pub.Subscribe("after", Filter{}, func(context.Context, *models.Event) { reached = true })

	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeTaskCreated, EntityType: models.EntityTypeTask, EntityID: "t1"})

	if !reached {
		t.Fatal("subscriber after a panicking handler was not called")
	}
}

func TestInMemoryPublisher_HandlersGetOwnCopy(t *testing.T) {
	pub := NewInMemoryPublisher()
	var seen models.EntityType
	_ = pub.Subscribe("mutator", Filter{}, func(_ context.Context, ev *models.Event) {
		ev.EntityType = models.EntityTypeStore
	})
	_ = pub.Subscribe("reader", Filter{}, func(_ context.Context, ev *models.Event) {
		seen = ev.EntityType
	})

	event := &models.Event{Type: models.EventTypeAgentCreated, EntityType: models.EntityTypeAgent, EntityID: "1"}
	pub.Publish(context.Background(), event)

	if seen != models.EntityTypeAgent {
		t.Errorf("reader saw entity type %q, want agent", seen)
	}
	if event.EntityType != models.EntityTypeAgent {
		t.Errorf("published event was mutated to %q", event.EntityType)
	}
}

func TestInMemoryPublisher_Close(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("a", Filter{}, func(context.Context, *models.Event) {})
	_ = pub.Subscribe("b", Filter{}, func(context.Context, *models.Event) {})

	pub.Close()

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}
}
