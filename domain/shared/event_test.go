package shared

import (
	"errors"
	"testing"
)

func TestValidateEvent(t *testing.T) {
	if err := ValidateEvent(nil); err == nil {
		t.Error("nil event accepted")
	}
	if err := ValidateEvent(NewBaseEvent("", "agg-1")); err == nil {
		t.Error("empty event name accepted")
	}
	if err := ValidateEvent(NewBaseEvent("order.created", "")); err == nil {
		t.Error("empty aggregate ID accepted")
	}
	if err := ValidateEvent(NewBaseEvent("order.created", "agg-1")); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}
}

func TestEventBusPublishAndSubscribe(t *testing.T) {
	bus := NewEventBus()

	var received []string
	handler := NewFuncHandler("recorder", func(e DomainEvent) error {
		received = append(received, e.GetAggregateID())
		return nil
	})

	if err := bus.Subscribe("order.created", handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	// 同名处理器重复订阅是装配错误
	if err := bus.Subscribe("order.created", NewFuncHandler("recorder", nil)); err == nil {
		t.Fatal("duplicate handler name accepted")
	}

	if err := bus.Publish(NewBaseEvent("order.created", "order-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(received) != 1 || received[0] != "order-1" {
		t.Fatalf("received = %v", received)
	}

	// 无订阅者的事件发布成功并留下记录
	if err := bus.Publish(NewBaseEvent("order.shipped", "order-1")); err != nil {
		t.Fatalf("publish without handlers: %v", err)
	}

	history := bus.GetPublishHistory()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if !history[0].Success || !history[1].Success {
		t.Fatalf("history = %+v", history)
	}

	t.Log("✓ Event bus publish/subscribe tests passed")
}

func TestEventBusHandlerFailure(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("handler exploded")

	_ = bus.Subscribe("order.created", NewFuncHandler("failing", func(DomainEvent) error {
		return boom
	}))

	err := bus.Publish(NewBaseEvent("order.created", "order-1"))
	if err == nil {
		t.Fatal("expected publish error when a handler fails")
	}

	history := bus.GetPublishHistory()
	if len(history) != 1 || history[0].Success {
		t.Fatalf("history = %+v", history)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := NewFuncHandler("countable", func(DomainEvent) error {
		calls++
		return nil
	})

	_ = bus.Subscribe("order.created", handler)
	_ = bus.Publish(NewBaseEvent("order.created", "order-1"))

	if err := bus.Unsubscribe("order.created", handler); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	_ = bus.Publish(NewBaseEvent("order.created", "order-2"))

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}

	// 解除未订阅的事件是空操作
	if err := bus.Unsubscribe("never.subscribed", handler); err != nil {
		t.Fatalf("Unsubscribe unknown event: %v", err)
	}
}
