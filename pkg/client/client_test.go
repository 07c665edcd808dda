package client

import (
	"context"
	"testing"

	"github.com/bobboyms/percolator/pkg/oracle"
	"github.com/bobboyms/percolator/pkg/rpc"
	"github.com/bobboyms/percolator/pkg/txnserver"
)

func newTestClient(transport rpc.Transport) *Client {
	cfg := DefaultConfig()
	cfg.RecoveryBackoff = 0
	return New(transport, cfg)
}

func freshTransport() rpc.Transport {
	return rpc.NewNetwork(&rpc.Direct{Oracle: oracle.New(), Server: txnserver.New()}, rpc.NetworkConfig{})
}

func TestBeginTwiceIsAPreconditionPanic(t *testing.T) {
	c := newTestClient(freshTransport())
	if err := c.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("double Begin should panic")
		}
	}()
	_ = c.Begin(context.Background())
}

func TestSetWithoutBeginIsAPreconditionPanic(t *testing.T) {
	c := newTestClient(freshTransport())
	defer func() {
		if recover() == nil {
			t.Fatalf("Set without Begin should panic")
		}
	}()
	c.Set([]byte("k"), []byte("v"))
}

func TestReadOnlyCommitIsANoOpReturningTrue(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(freshTransport())
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	ok, err := c.Commit(ctx)
	if err != nil || !ok {
		t.Fatalf("read-only Commit = %v, %v, want true, nil", ok, err)
	}
}

func TestUncommittedSetIsNotVisibleToAnotherTransaction(t *testing.T) {
	ctx := context.Background()
	transport := freshTransport()
	c0 := newTestClient(transport)
	if err := c0.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	c0.Set([]byte("1"), []byte("10"))

	c1 := newTestClient(transport)
	if err := c1.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	v, err := c1.Get(ctx, []byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 0 {
		t.Fatalf("uncommitted write from c0 visible to c1: got %q", v)
	}
}

func TestGetOfNeverWrittenKeyReturnsEmptyBytesNotError(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(freshTransport())
	if err := c.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, []byte("nope"))
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 0 {
		t.Fatalf("Get of unwritten key = %q, want empty", v)
	}
}

func TestSetKeepsBufferSortedSoSmallestKeyIsPrimary(t *testing.T) {
	c := newTestClient(freshTransport())
	if err := c.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Set([]byte("5"), []byte("50"))
	c.Set([]byte("3"), []byte("30"))
	c.Set([]byte("4"), []byte("40"))

	if string(c.buffer[0].key) != "3" {
		t.Fatalf("primary (buffer[0]) = %q, want 3", c.buffer[0].key)
	}
}
