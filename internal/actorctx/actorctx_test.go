package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("expected no user on empty context")
	}

	ctx := WithUserID(context.Background(), "u1")
	id, ok := UserIDFrom(ctx)
	if !ok || id != "u1" {
		t.Fatalf("got %q %v", id, ok)
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("empty id should not count as a user")
	}
}
