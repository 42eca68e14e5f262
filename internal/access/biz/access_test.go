package biz

import (
	"context"
	"testing"

	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
)

// fakeAccessRepo is an in-memory AccessControlRepo for use-case tests.
type fakeAccessRepo struct {
	controls map[string]*AccessControl
	records  map[string]map[string]*UserAccessRecord // controlID -> userAddress
	order    map[string][]string                     // controlID -> insertion order
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{
		controls: make(map[string]*AccessControl),
		records:  make(map[string]map[string]*UserAccessRecord),
		order:    make(map[string][]string),
	}
}

func (r *fakeAccessRepo) Create(_ context.Context, ac *AccessControl) error {
	cp := *ac
	r.controls[ac.ID] = &cp
	return nil
}

func (r *fakeAccessRepo) GetByID(_ context.Context, id string) (*AccessControl, error) {
	ac, ok := r.controls[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrAccessControlNotFound)
	}
	cp := *ac
	return &cp, nil
}

func (r *fakeAccessRepo) GetByFileCID(_ context.Context, fileCID string) (*AccessControl, error) {
	for _, ac := range r.controls {
		if ac.FileCID == fileCID {
			cp := *ac
			return &cp, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrAccessControlNotFound)
}

func (r *fakeAccessRepo) GetForUpdate(ctx context.Context, id string) (*AccessControl, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAccessRepo) Save(_ context.Context, ac *AccessControl) error {
	cp := *ac
	r.controls[ac.ID] = &cp
	return nil
}

func (r *fakeAccessRepo) GetUserRecord(_ context.Context, controlID, userAddress string) (*UserAccessRecord, error) {
	rec, ok := r.records[controlID][userAddress]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeAccessRepo) UpsertUserRecord(_ context.Context, controlID string, rec *UserAccessRecord) error {
	if r.records[controlID] == nil {
		r.records[controlID] = make(map[string]*UserAccessRecord)
	}
	if _, exists := r.records[controlID][rec.UserAddress]; !exists {
		r.order[controlID] = append(r.order[controlID], rec.UserAddress)
	}
	cp := *rec
	r.records[controlID][rec.UserAddress] = &cp
	return nil
}

func (r *fakeAccessRepo) ListUserRecords(_ context.Context, controlID string) ([]*UserAccessRecord, error) {
	out := make([]*UserAccessRecord, 0, len(r.order[controlID]))
	for _, addr := range r.order[controlID] {
		cp := *r.records[controlID][addr]
		out = append(out, &cp)
	}
	return out, nil
}

// passTx runs the function directly; the use case only cares that everything
// inside either runs or does not.
type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, string, interface{}) {}

func newAccessUseCase(repo AccessControlRepo) *AccessControlUseCase {
	return NewAccessControlUseCase(repo, passTx{}, nopEvents{})
}

func TestAccessControlCreate(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	cond := Condition{
		AllowedAddresses:   []string{"0xabc"},
		CurrentAccessCount: 99, // must be ignored
	}
	ac, err := uc.Create(ctx, "cid-1", "0xowner", cond, 1000)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ac.ID == "" {
		t.Error("Create() should assign an id")
	}
	if ac.Condition.CurrentAccessCount != 0 {
		t.Errorf("CurrentAccessCount = %d, want 0", ac.Condition.CurrentAccessCount)
	}

	if _, err := uc.Create(ctx, "", "0xowner", Condition{}, 1000); err == nil {
		t.Error("Create() with empty file cid should fail")
	}
	bad := Condition{AccessStartTime: i64(2000), AccessEndTime: i64(1000)}
	if _, err := uc.Create(ctx, "cid-2", "0xowner", bad, 1000); apperrors.ExtractCode(err) != apperrors.ErrInvalidCondition {
		t.Errorf("Create() with malformed condition: code = %d, want %d",
			apperrors.ExtractCode(err), apperrors.ErrInvalidCondition)
	}
}

func TestAccessControlUpdate_OwnerOnly(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, err := uc.Create(ctx, "cid-1", "0xowner", Condition{AllowedAddresses: []string{"0xabc"}}, 1000)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := uc.Update(ctx, ac.ID, "0xintruder", Condition{}, 2000); apperrors.ExtractCode(err) != apperrors.ErrNotAuthorized {
		t.Errorf("non-owner update: code = %d, want %d",
			apperrors.ExtractCode(err), apperrors.ErrNotAuthorized)
	}

	updated, err := uc.Update(ctx, ac.ID, "0xowner", Condition{AllowedEmails: []string{"a@example.com"}}, 2000)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(updated.Condition.AllowedAddresses) != 0 {
		t.Error("Update() must fully replace the condition")
	}
	if updated.UpdatedAt != 2000 {
		t.Errorf("UpdatedAt = %d, want 2000", updated.UpdatedAt)
	}
}

func TestAccessControlUpdate_PreservesCounter(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, _ := uc.Create(ctx, "cid-1", "0xowner", Condition{AllowedAddresses: []string{"0xabc"}}, 1000)
	for i := 0; i < 3; i++ {
		if _, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xabc"}, 1100); err != nil {
			t.Fatalf("ValidateAndRecord() error = %v", err)
		}
	}

	updated, err := uc.Update(ctx, ac.ID, "0xowner", Condition{MaxAccessCount: u64(5)}, 2000)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Condition.CurrentAccessCount != 3 {
		t.Errorf("CurrentAccessCount = %d, want 3 (carried over)", updated.Condition.CurrentAccessCount)
	}
}

func TestValidateAndRecord_UpsertSemantics(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, _ := uc.Create(ctx, "cid-1", "0xowner", Condition{AllowedAddresses: []string{"0xabc", "0xdef"}}, 1000)

	d, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xabc", Email: "a@example.com"}, 1100)
	if err != nil || !d.Granted {
		t.Fatalf("first access: granted=%v err=%v", d.Granted, err)
	}
	d, err = uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xabc"}, 1200)
	if err != nil || !d.Granted {
		t.Fatalf("second access: granted=%v err=%v", d.Granted, err)
	}

	records, err := uc.ListUserRecords(ctx, ac.ID)
	if err != nil {
		t.Fatalf("ListUserRecords() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (same user upserts)", len(records))
	}
	rec := records[0]
	if rec.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", rec.AccessCount)
	}
	if rec.FirstAccessTime != 1100 {
		t.Errorf("FirstAccessTime = %d, want 1100 (set once, never moves)", rec.FirstAccessTime)
	}
	if rec.AccessTimestamp != 1200 {
		t.Errorf("AccessTimestamp = %d, want 1200", rec.AccessTimestamp)
	}
	if rec.UserEmail != "a@example.com" {
		t.Errorf("UserEmail = %q, want last non-empty email kept", rec.UserEmail)
	}

	// A second user gets a second record.
	if _, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xdef"}, 1300); err != nil {
		t.Fatalf("ValidateAndRecord() error = %v", err)
	}
	records, _ = uc.ListUserRecords(ctx, ac.ID)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	got, err := uc.Get(ctx, ac.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Condition.CurrentAccessCount != 3 {
		t.Errorf("CurrentAccessCount = %d, want 3", got.Condition.CurrentAccessCount)
	}
}

func TestValidateAndRecord_DenyRecordsNothing(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, _ := uc.Create(ctx, "cid-1", "0xowner", Condition{AllowedAddresses: []string{"0xabc"}}, 1000)

	d, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xintruder"}, 1100)
	if err != nil {
		t.Fatalf("ValidateAndRecord() error = %v", err)
	}
	if d.Granted {
		t.Fatal("intruder should be denied")
	}

	records, _ := uc.ListUserRecords(ctx, ac.ID)
	if len(records) != 0 {
		t.Errorf("records = %d, want 0 on deny", len(records))
	}
	got, _ := uc.Get(ctx, ac.ID)
	if got.Condition.CurrentAccessCount != 0 {
		t.Errorf("CurrentAccessCount = %d, want 0 on deny", got.Condition.CurrentAccessCount)
	}
}

func TestValidateAndRecord_QuotaStopsAtLimit(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, _ := uc.Create(ctx, "cid-1", "0xowner", Condition{MaxAccessCount: u64(2)}, 1000)

	for i := 0; i < 2; i++ {
		d, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xabc"}, 1100)
		if err != nil || !d.Granted {
			t.Fatalf("access %d: granted=%v err=%v", i+1, d.Granted, err)
		}
	}

	d, err := uc.ValidateAndRecord(ctx, ac.ID, Identity{Address: "0xabc"}, 1200)
	if err != nil {
		t.Fatalf("ValidateAndRecord() error = %v", err)
	}
	if d.Granted {
		t.Fatal("third access should hit the quota")
	}
	if d.Reason != ReasonQuotaExhausted {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonQuotaExhausted)
	}
}

func TestPreview_NeverMutates(t *testing.T) {
	repo := newFakeAccessRepo()
	uc := newAccessUseCase(repo)
	ctx := context.Background()

	ac, _ := uc.Create(ctx, "cid-1", "0xowner", Condition{AllowedAddresses: []string{"0xabc"}}, 1000)

	for i := 0; i < 5; i++ {
		d, err := uc.Preview(ctx, ac.ID, Identity{Address: "0xabc"}, 1100)
		if err != nil || !d.Granted {
			t.Fatalf("Preview() granted=%v err=%v", d.Granted, err)
		}
	}

	got, _ := uc.Get(ctx, ac.ID)
	if got.Condition.CurrentAccessCount != 0 {
		t.Errorf("CurrentAccessCount = %d, want 0 after previews", got.Condition.CurrentAccessCount)
	}
	records, _ := uc.ListUserRecords(ctx, ac.ID)
	if len(records) != 0 {
		t.Errorf("records = %d, want 0 after previews", len(records))
	}
}
