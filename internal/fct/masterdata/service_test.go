package masterdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRegistry struct {
	records map[string]*Record
	nextID  int64
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{records: make(map[string]*Record)}
}

func registryKey(tenantID string, typ RecordType, code string) string {
	return tenantID + "/" + string(typ) + "/" + code
}

func (r *memoryRegistry) Upsert(ctx context.Context, rec Record) (Record, error) {
	key := registryKey(rec.TenantID, rec.Type, rec.Code)
	if existing, ok := r.records[key]; ok {
		existing.Name = rec.Name
		existing.Extra = rec.Extra
		existing.UpdatedAt = time.Now()
		return *existing, nil
	}
	r.nextID++
	rec.ID = r.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	stored := rec
	r.records[key] = &stored
	return rec, nil
}

func (r *memoryRegistry) Get(ctx context.Context, tenantID string, typ RecordType, code string) (Record, error) {
	rec, ok := r.records[registryKey(tenantID, typ, code)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (r *memoryRegistry) List(ctx context.Context, tenantID string, typ RecordType) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Type == typ {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRegistry())

	rec, err := svc.Upsert(ctx, Record{
		TenantID: "t1", Type: TypeStore, Code: "s001", Name: "国贸店",
		Extra: map[string]string{"region": "north"},
	})
	require.NoError(t, err)
	require.NotZero(t, rec.ID)

	got, err := svc.Get(ctx, "t1", TypeStore, "s001")
	require.NoError(t, err)
	require.Equal(t, "国贸店", got.Name)

	// Upsert overwrites in place.
	_, err = svc.Upsert(ctx, Record{TenantID: "t1", Type: TypeStore, Code: "s001", Name: "国贸旗舰店"})
	require.NoError(t, err)
	got, err = svc.Get(ctx, "t1", TypeStore, "s001")
	require.NoError(t, err)
	require.Equal(t, "国贸旗舰店", got.Name)
}

func TestUpsertUnknownType(t *testing.T) {
	svc := NewService(newMemoryRegistry())
	_, err := svc.Upsert(context.Background(), Record{TenantID: "t1", Type: "warehouse", Code: "w1", Name: "x"})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestListUnknownType(t *testing.T) {
	svc := NewService(newMemoryRegistry())
	_, err := svc.List(context.Background(), "t1", "warehouse")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestStoreRegion(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRegistry())

	_, err := svc.Upsert(ctx, Record{
		TenantID: "t1", Type: TypeStore, Code: "s001", Name: "国贸店",
		Extra: map[string]string{"region": "north"},
	})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, Record{TenantID: "t1", Type: TypeStore, Code: "s002", Name: "望京店"})
	require.NoError(t, err)

	region, err := svc.StoreRegion(ctx, "t1", "s001")
	require.NoError(t, err)
	require.Equal(t, "north", region)

	// Region-less and unknown stores land in the unassigned bucket.
	region, err = svc.StoreRegion(ctx, "t1", "s002")
	require.NoError(t, err)
	require.Equal(t, RegionUnassigned, region)

	region, err = svc.StoreRegion(ctx, "t1", "nope")
	require.NoError(t, err)
	require.Equal(t, RegionUnassigned, region)
}
