package masterdata

import (
	"errors"
	"time"
)

// ErrUnknownType rejects record types outside the registry's fixed set.
var ErrUnknownType = errors.New("masterdata: unknown record type")

// RecordType enumerates registry record kinds.
type RecordType string

const (
	TypeStore       RecordType = "store"
	TypeSupplier    RecordType = "supplier"
	TypeAccount     RecordType = "account"
	TypeBankAccount RecordType = "bank_account"
)

// Record is one master-data registry row.
type Record struct {
	ID        int64             `json:"id"`
	TenantID  string            `json:"tenant_id"`
	Type      RecordType        `json:"record_type"`
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Extra     map[string]string `json:"extra,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RegionUnassigned buckets stores without a region tag.
const RegionUnassigned = "unassigned"

// Region returns the region tag of a store record.
func (r Record) Region() string {
	if v := r.Extra["region"]; v != "" {
		return v
	}
	return RegionUnassigned
}

// ValidType reports whether t is a known record type.
func ValidType(t RecordType) bool {
	switch t {
	case TypeStore, TypeSupplier, TypeAccount, TypeBankAccount:
		return true
	}
	return false
}
