package mcpservice

import (
	"context"
	"testing"
)

func TestChangeNotifier_CoalescesAndCloses(t *testing.T) {
	t.Parallel()
	var cn ChangeNotifier
	sub := cn.Subscriber()

	_ = cn.Notify(context.Background())
	_ = cn.Notify(context.Background())
	<-sub
	select {
	case <-sub:
		t.Fatalf("signals should coalesce")
	default:
	}

	cn.Close()
	if _, ok := <-sub; ok {
		t.Fatalf("subscriber should be closed")
	}
	if _, ok := <-cn.Subscriber(); ok {
		t.Fatalf("late subscriber should receive a closed channel")
	}
	_ = cn.Notify(context.Background())
}
