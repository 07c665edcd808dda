package txnserver

import (
	"context"
	"testing"

	"github.com/bobboyms/percolator/pkg/kv"
	"github.com/bobboyms/percolator/pkg/percolerrors"
)

func TestGetReturnsNoneWithNoCommittedVersion(t *testing.T) {
	s := New()
	_, found, err := s.Get(context.Background(), 100, kv.Key("k"))
	if err != nil || found {
		t.Fatalf("Get on empty store = found=%v err=%v, want found=false err=nil", found, err)
	}
}

func TestPrewriteCommitThenGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 10, key, []byte("v1"), key); err != nil {
		t.Fatalf("Prewrite: %v", err)
	}
	if err := s.Commit(ctx, true, key, 10, 11); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	value, found, err := s.Get(ctx, 20, key)
	if err != nil || !found || string(value) != "v1" {
		t.Fatalf("Get = %q, %v, %v, want v1, true, nil", value, found, err)
	}
}

func TestGetBeforeCommitTsSeesOlderVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("old"), key); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, true, key, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Prewrite(ctx, 10, key, []byte("new"), key); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, true, key, 10, 11); err != nil {
		t.Fatal(err)
	}

	value, found, err := s.Get(ctx, 5, key)
	if err != nil || !found || string(value) != "old" {
		t.Fatalf("Get(ts=5) = %q, %v, %v, want old", value, found, err)
	}
	value, found, err = s.Get(ctx, 20, key)
	if err != nil || !found || string(value) != "new" {
		t.Fatalf("Get(ts=20) = %q, %v, %v, want new", value, found, err)
	}
}

func TestPrewriteRejectsSecondLockOnSameKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("v1"), key); err != nil {
		t.Fatal(err)
	}
	err := s.Prewrite(ctx, 2, key, []byte("v2"), key)
	if err == nil {
		t.Fatalf("second Prewrite on locked key should fail")
	}
	if _, ok := percolerrors.AsLocked(err); !ok {
		t.Fatalf("expected IsLockedError, got %T: %v", err, err)
	}
}

func TestPrewriteRejectsWriteAfterStartTs(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("v1"), key); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, true, key, 1, 5); err != nil {
		t.Fatal(err)
	}

	err := s.Prewrite(ctx, 3, key, []byte("v2"), key)
	if err == nil {
		t.Fatalf("Prewrite with start_ts < an existing commit_ts should conflict")
	}
	conflict, ok := percolerrors.AsWriteConflict(err)
	if !ok || conflict.Ts != 5 {
		t.Fatalf("expected WriteConflictError{Ts:5}, got %v", err)
	}
}

func TestGetIsLockedReportsLockHolderAndPrimary(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")
	primary := kv.Key("primary")

	if err := s.Prewrite(ctx, 7, key, []byte("v"), primary); err != nil {
		t.Fatal(err)
	}
	_, _, err := s.Get(ctx, 8, key)
	if err == nil {
		t.Fatalf("Get on locked key should fail")
	}
	locked, ok := percolerrors.AsLocked(err)
	if !ok || locked.Ts != 7 || string(locked.Primary) != "primary" {
		t.Fatalf("expected IsLockedError{Ts:7, Primary:primary}, got %v", err)
	}
}

func TestCheckFindsCommittedTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("v"), key); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, true, key, 1, 9); err != nil {
		t.Fatal(err)
	}

	commitTs, found := s.Check(ctx, key, 1)
	if !found || commitTs != 9 {
		t.Fatalf("Check = %d, %v, want 9, true", commitTs, found)
	}
}

func TestCheckReportsNotFoundWhenNeverCommitted(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("v"), key); err != nil {
		t.Fatal(err)
	}
	if _, found := s.Check(ctx, key, 1); found {
		t.Fatalf("Check should report not found before commit")
	}
}

func TestRollbackClearsLockAndCheckStillReportsAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := kv.Key("k")

	if err := s.Prewrite(ctx, 1, key, []byte("v"), key); err != nil {
		t.Fatal(err)
	}
	if err := s.Rollback(ctx, key, 1); err != nil {
		t.Fatal(err)
	}

	_, found, err := s.Get(ctx, 2, key)
	if err != nil || found {
		t.Fatalf("Get after rollback = found=%v err=%v, want false, nil", found, err)
	}
	if _, found := s.Check(ctx, key, 1); found {
		t.Fatalf("Check after rollback should still report not found")
	}
}
