package referral

import (
	"strings"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/domain/directory"
)

// AllowedHospitals is the fixed list of partner hospitals accepted for
// external referrals. Anything else goes through the free-text path.
var AllowedHospitals = []string{
	"City General Hospital",
	"Provincial Medical Center",
	"Regional Tertiary Hospital",
	"St. Camillus Medical Center",
	"Holy Family Hospital",
}

const minOtherFacilityNameLen = 3

type vitalRange struct {
	field string
	value *float64
	min   float64
	max   float64
}

// Validate checks a submission against destination rules and vitals
// plausibility ranges. Every violation is collected so the caller can
// report all of them at once; an empty result means the submission is
// acceptable. Pure function of its inputs.
func Validate(sub *Submission, patient *directory.Patient, resolved *ResolvedFacilities) *ValidationError {
	verr := NewValidationError()

	if patient == nil {
		verr.Add("patient_id", "patient is required")
	} else if !patient.IsActive() {
		verr.Add("patient_id", "patient record is not active")
	}

	if strings.TrimSpace(sub.Reason) == "" {
		verr.Add("referral_reason", "referral reason is required")
	}

	switch {
	case sub.DestinationType == "":
		verr.Add("destination_type", "destination type is required")
	case !sub.DestinationType.Valid():
		verr.Add("destination_type", "unknown destination type")
	default:
		validateDestination(sub, resolved, verr)
	}

	if sub.Vitals != nil {
		validateVitals(sub.Vitals, verr)
	}

	return verr
}

func validateDestination(sub *Submission, resolved *ResolvedFacilities, verr *ValidationError) {
	switch sub.DestinationType {
	case DestBarangayCenter:
		if resolved == nil || resolved.BarangayCenter == nil {
			verr.Add("destination_type", "no barangay health center found for patient's location")
		}
	case DestDistrictOffice:
		if resolved == nil || resolved.DistrictOffice == nil {
			verr.Add("destination_type", "no district office found for patient's location")
		}
	case DestCityOffice:
		// Always resolvable; absence of the main office is a
		// configuration fault handled before validation.
	case DestExternal:
		validateExternal(sub, verr)
	}
}

func validateExternal(sub *Submission, verr *ValidationError) {
	ext := sub.ExternalFacility
	if ext.IsEmpty() {
		verr.Add("external_facility", "external facility is required for external referrals")
		return
	}
	if ext.IsOther() {
		if len(strings.TrimSpace(ext.Value())) < minOtherFacilityNameLen {
			verr.Add("external_facility", "facility name must be at least 3 characters")
		}
		return
	}
	if !ext.MemberOf(AllowedHospitals) {
		verr.Add("external_facility", "hospital is not on the accepted list")
	}
}

func validateVitals(v *VitalsInput, verr *ValidationError) {
	checks := []vitalRange{
		{"systolic_bp", v.SystolicBP, 60, 260},
		{"diastolic_bp", v.DiastolicBP, 30, 160},
		{"heart_rate", v.HeartRate, 30, 200},
		{"respiratory_rate", v.RespiratoryRate, 5, 60},
		{"temperature_c", v.TemperatureC, 30, 45},
		{"weight_kg", v.WeightKG, 1, 500},
		{"height_cm", v.HeightCM, 30, 260},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if *c.value < c.min || *c.value > c.max {
			verr.Add(c.field, "value outside plausible range")
		}
	}
}

// BuildSnapshot converts validated vitals input into a snapshot row,
// deriving BMI when both weight and height are present. Returns nil when
// no measurement was supplied.
func BuildSnapshot(v *VitalsInput) *VitalsSnapshot {
	if v.Empty() {
		return nil
	}
	snap := &VitalsSnapshot{
		SystolicBP:      v.SystolicBP,
		DiastolicBP:     v.DiastolicBP,
		HeartRate:       v.HeartRate,
		RespiratoryRate: v.RespiratoryRate,
		TemperatureC:    v.TemperatureC,
		WeightKG:        v.WeightKG,
		HeightCM:        v.HeightCM,
	}
	if v.WeightKG != nil && v.HeightCM != nil {
		bmi := ComputeBMI(*v.WeightKG, *v.HeightCM)
		snap.BMI = &bmi
	}
	return snap
}
