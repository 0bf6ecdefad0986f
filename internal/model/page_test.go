package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewPageRequest_Clamping(t *testing.T) {
	tests := []struct {
		name         string
		page, size   string
		def          int
		wantPage     int
		wantPageSize int
	}{
		{"defaults", "", "", 20, 1, 20},
		{"directory default", "", "", 10, 1, 10},
		{"explicit", "3", "50", 20, 3, 50},
		{"zero page", "0", "5", 20, 1, 5},
		{"negative page", "-4", "5", 20, 1, 5},
		{"zero size uses default", "1", "0", 20, 1, 20},
		{"negative size", "1", "-9", 20, 1, 1},
		{"oversized", "2", "1000", 20, 2, 100},
		{"garbage", "abc", "xyz", 20, 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPageRequest(tt.page, tt.size, tt.def)
			if got.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", got.Page, tt.wantPage)
			}
			if got.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", got.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	p := PageRequest{Page: 3, PageSize: 25}
	if got := p.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
}

func TestDate_ParseAndMarshal(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"2024-03-15"` {
		t.Errorf("json = %s, want %q", b, "2024-03-15")
	}

	d2, err := ParseDate("2024-03-15T10:00:00Z")
	if err != nil {
		t.Fatalf("ParseDate RFC3339: %v", err)
	}
	if d2.String() != "2024-03-15" {
		t.Errorf("String() = %q", d2.String())
	}

	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time: %v", err)
	}
	if d.String() != "2023-01-02" {
		t.Errorf("String() = %q", d.String())
	}
	if err := d.Scan([]byte("2022-12-31")); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if d.String() != "2022-12-31" {
		t.Errorf("String() = %q", d.String())
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error for int source")
	}
}

func TestMetadata_DefaultsToEmptyObject(t *testing.T) {
	var m Metadata
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "{}" {
		t.Errorf("json = %s, want {}", b)
	}

	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "{}" {
		t.Errorf("Value() = %v, want {}", v)
	}
}

func TestMetadata_ScanCopiesBuffer(t *testing.T) {
	src := []byte(`{"w":1}`)
	var m Metadata
	if err := m.Scan(src); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	src[2] = 'x'
	if string(m) != `{"w":1}` {
		t.Errorf("metadata shares driver buffer: %s", m)
	}
}

func TestUserProfile_MaskContact(t *testing.T) {
	phone := "+61 400 000 000"
	email := "me@example.com"

	p := &UserProfile{PhoneNumber: &phone, ContactEmail: &email, ShowPhone: false, ShowContactEmail: true}
	p.MaskContact()

	if p.PhoneNumber != nil {
		t.Error("phone should be masked when show_phone is false")
	}
	if p.ContactEmail == nil || *p.ContactEmail != email {
		t.Error("contact email should stay visible when show_contact_email is true")
	}
}

func TestIsValidCreditEventType(t *testing.T) {
	for _, v := range []string{"issuance", "offtake", "retirement"} {
		if !IsValidCreditEventType(v) {
			t.Errorf("%q should be valid", v)
		}
	}
	if IsValidCreditEventType("transfer") {
		t.Error("transfer should be invalid")
	}
}
