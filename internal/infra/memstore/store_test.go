package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cipherid/internal/domain"
	"cipherid/internal/infra/events"
)

func newTestStore() (*Store, *events.MemoryLog) {
	log := events.NewMemoryLog()
	return New(log), log
}

func seedRecord(t *testing.T, fill byte, owner string) domain.DeviceRecord {
	t.Helper()
	raw := make([]byte, domain.CiphertextSize)
	for i := range raw {
		raw[i] = fill
	}
	ct, err := domain.ImportCiphertext(raw)
	if err != nil {
		t.Fatalf("import ciphertext: %v", err)
	}
	return domain.DeviceRecord{
		IdentifierHash:      domain.DeriveIdentifierHash(ct),
		EncryptedIdentifier: ct,
		PublicKey:           1,
		Owner:               owner,
		IsActive:            true,
	}
}

func registeredEvent(record domain.DeviceRecord) domain.Event {
	return domain.Event{
		Type:           domain.EventDeviceRegistered,
		IdentifierHash: record.IdentifierHash,
		Owner:          record.Owner,
	}
}

func authEvent(hash domain.IdentifierHash, authTime int64) domain.Event {
	return domain.Event{
		Type:           domain.EventDeviceAuthenticated,
		IdentifierHash: hash,
		AuthTime:       authTime,
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	store, log := newTestStore()
	record := seedRecord(t, 0x10, "alice")

	committed, err := store.Insert(context.Background(), record, registeredEvent(record))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if committed.Seq == 0 {
		t.Fatal("insert must return the committed event with its sequence")
	}

	got, err := store.Get(context.Background(), record.IdentifierHash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != "alice" || !got.EncryptedIdentifier.Equal(record.EncryptedIdentifier) {
		t.Fatalf("record mismatch: %+v", got)
	}

	hashes, err := store.OwnerHashes(context.Background(), "alice")
	if err != nil {
		t.Fatalf("owner hashes: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != record.IdentifierHash {
		t.Fatalf("owner index not committed with the record: %v", hashes)
	}

	eventList, err := log.ListByDevice(context.Background(), record.IdentifierHash)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(eventList) != 1 || eventList[0].Type != domain.EventDeviceRegistered {
		t.Fatalf("registration event not committed with the record: %+v", eventList)
	}
}

func TestStore_DuplicateInsert(t *testing.T) {
	store, log := newTestStore()
	record := seedRecord(t, 0x11, "alice")

	if _, err := store.Insert(context.Background(), record, registeredEvent(record)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	record.Owner = "bob"
	_, err := store.Insert(context.Background(), record, registeredEvent(record))
	if !errors.Is(err, domain.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
	if hashes, _ := store.OwnerHashes(context.Background(), "bob"); len(hashes) != 0 {
		t.Fatal("losing insert must not touch the owner index")
	}
	if eventList, _ := log.ListByDevice(context.Background(), record.IdentifierHash); len(eventList) != 1 {
		t.Fatalf("losing insert must not commit an event, got %d", len(eventList))
	}
}

func TestStore_ConcurrentInsertSingleWinner(t *testing.T) {
	store, log := newTestStore()
	record := seedRecord(t, 0x12, "alice")

	const goroutines = 32
	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Insert(context.Background(), record, registeredEvent(record))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrDuplicateRegistration):
		default:
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if hashes, _ := store.OwnerHashes(context.Background(), "alice"); len(hashes) != 1 {
		t.Fatalf("owner index must hold exactly one entry, got %d", len(hashes))
	}
	if eventList, _ := log.ListByDevice(context.Background(), record.IdentifierHash); len(eventList) != 1 {
		t.Fatalf("exactly one registration event may commit, got %d", len(eventList))
	}
}

func TestStore_UpdateAuthTime(t *testing.T) {
	store, _ := newTestStore()
	record := seedRecord(t, 0x13, "alice")
	if _, err := store.Insert(context.Background(), record, registeredEvent(record)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := store.UpdateAuthTime(context.Background(), record.IdentifierHash, 1700000000, authEvent(record.IdentifierHash, 1700000000)); err != nil {
		t.Fatalf("update auth time: %v", err)
	}
	got, _ := store.Get(context.Background(), record.IdentifierHash)
	if got.LastAuthTime != 1700000000 {
		t.Fatalf("auth time not persisted: %d", got.LastAuthTime)
	}

	_, err := store.UpdateAuthTime(context.Background(), "deadbeef", 1, authEvent("deadbeef", 1))
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected device not found, got %v", err)
	}
}

func TestStore_UpdateAuthTimeInactive(t *testing.T) {
	store, log := newTestStore()
	record := seedRecord(t, 0x15, "alice")
	if _, err := store.Insert(context.Background(), record, registeredEvent(record)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Deactivate(context.Background(), record.IdentifierHash, "alice"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := store.UpdateAuthTime(context.Background(), record.IdentifierHash, 1700000001, authEvent(record.IdentifierHash, 1700000001))
	if !errors.Is(err, domain.ErrDeviceInactive) {
		t.Fatalf("expected device inactive, got %v", err)
	}

	got, _ := store.Get(context.Background(), record.IdentifierHash)
	if got.LastAuthTime != 0 {
		t.Fatalf("inactive device must keep its auth time: %d", got.LastAuthTime)
	}
	eventList, _ := log.ListByDevice(context.Background(), record.IdentifierHash)
	for _, event := range eventList {
		if event.Type == domain.EventDeviceAuthenticated {
			t.Fatalf("rejected write must not commit an event: %+v", event)
		}
	}
}

func TestStore_Deactivate(t *testing.T) {
	store, _ := newTestStore()
	record := seedRecord(t, 0x14, "alice")
	if _, err := store.Insert(context.Background(), record, registeredEvent(record)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := store.Deactivate(context.Background(), record.IdentifierHash, "bob")
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}

	if err := store.Deactivate(context.Background(), record.IdentifierHash, "alice"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Idempotent for the owner.
	if err := store.Deactivate(context.Background(), record.IdentifierHash, "alice"); err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}

	got, _ := store.Get(context.Background(), record.IdentifierHash)
	if got.IsActive {
		t.Fatal("record must read inactive after deactivation")
	}
	if hashes, _ := store.OwnerHashes(context.Background(), "alice"); len(hashes) != 1 {
		t.Fatal("deactivated device must stay in the owner index")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.Get(context.Background(), "deadbeef")
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected device not found, got %v", err)
	}
}
