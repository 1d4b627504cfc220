package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/domain/directory"
)

func TestResolveFullLocation(t *testing.T) {
	f := newFixture()

	resolved, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), f.patient.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.BarangayCenter == nil || resolved.BarangayCenter.ID != f.center.ID {
		t.Error("barangay center not resolved")
	}
	if resolved.DistrictOffice == nil || resolved.DistrictOffice.ID != f.district.ID {
		t.Error("district office not resolved")
	}
	if resolved.CityOffice == nil || resolved.CityOffice.ID != f.cityOffice.ID {
		t.Error("city office not resolved")
	}
}

func TestResolveNoBarangayCenter(t *testing.T) {
	f := newFixture()
	delete(f.facility.byID, f.center.ID)

	resolved, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), f.patient.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.BarangayCenter != nil {
		t.Error("barangay center should be nil for an unmapped barangay")
	}
	if resolved.CityOffice == nil {
		t.Error("city office must still resolve")
	}
}

func TestResolvePicksFirstCenterByName(t *testing.T) {
	f := newFixture()
	district := "District 1"
	second := &directory.Facility{
		ID: uuid.New(), Name: "Aguinaldo Health Center",
		Type: directory.FacilityBarangayCenter, BarangayID: &f.barangayID,
		District: &district, Active: true,
	}
	f.facility.byID[second.ID] = second

	resolved, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), f.patient.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.BarangayCenter.ID != second.ID {
		t.Errorf("resolved %q, want first by name %q", resolved.BarangayCenter.Name, second.Name)
	}
}

func TestResolveUnknownPatient(t *testing.T) {
	f := newFixture()

	_, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), uuid.New())
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestResolveMissingBarangayLinkage(t *testing.T) {
	f := newFixture()
	f.patient.BarangayID = nil

	_, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), f.patient.ID)
	if !errors.Is(err, ErrLocationDataIncomplete) {
		t.Errorf("err = %v, want ErrLocationDataIncomplete", err)
	}
}

func TestResolveMissingCityOffice(t *testing.T) {
	f := newFixture()
	delete(f.facility.byID, f.cityOffice.ID)

	_, err := NewResolver(f.patients, f.facility).Resolve(context.Background(), f.patient.ID)
	if !errors.Is(err, ErrMissingCityOffice) {
		t.Errorf("err = %v, want ErrMissingCityOffice", err)
	}
}
