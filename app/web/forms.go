package web

import (
	"fmt"
	"net/http"

	"github.com/Stromnimick/HQEinOne/app/persistence"
	"github.com/Stromnimick/HQEinOne/app/records"
)

// posted returns pointer to the submitted value, nil if the field is not in the form
func posted(r *http.Request, name string) *string {
	vals, ok := r.PostForm[name]
	if !ok {
		return nil
	}
	v := ""
	if len(vals) > 0 {
		v = vals[0]
	}
	return &v
}

func postedNumber(r *http.Request, name string) *records.Number {
	v := posted(r, name)
	if v == nil {
		return nil
	}
	n := records.Number(*v)
	return &n
}

func programForm(r *http.Request) records.ProgramFields {
	return records.ProgramFields{
		DegreeLong:  r.PostFormValue("l_abschluss"),
		DegreeShort: r.PostFormValue("k_abschluss"),
		LongName:    r.PostFormValue("l_name"),
		ShortName:   r.PostFormValue("k_name"),
		Faculty:     r.PostFormValue("fak"),
		Institute:   r.PostFormValue("inst"),
		Abint:       r.PostFormValue("abint"),
		Stg:         records.Number(r.PostFormValue("stg")),
	}
}

func programPatchForm(r *http.Request) records.ProgramPatch {
	return records.ProgramPatch{
		DegreeLong:  posted(r, "l_abschluss"),
		DegreeShort: posted(r, "k_abschluss"),
		LongName:    posted(r, "l_name"),
		ShortName:   posted(r, "k_name"),
		Faculty:     posted(r, "fak"),
		Institute:   posted(r, "inst"),
		Abint:       posted(r, "abint"),
		Stg:         postedNumber(r, "stg"),
	}
}

func regulationForm(r *http.Request) records.RegulationFields {
	return records.RegulationFields{
		ProgramID:        records.Number(r.PostFormValue("studiengang_id")),
		StandardDuration: records.Number(r.PostFormValue("rsz")),
		Version:          records.Number(r.PostFormValue("po_version")),
		ValidFrom:        records.Number(r.PostFormValue("po_start")),
		ValidUntil:       records.Number(r.PostFormValue("po_ende")),
	}
}

func regulationPatchForm(r *http.Request) records.RegulationPatch {
	return records.RegulationPatch{
		ProgramID:        postedNumber(r, "studiengang_id"),
		StandardDuration: postedNumber(r, "rsz"),
		Version:          postedNumber(r, "po_version"),
		ValidFrom:        postedNumber(r, "po_start"),
		ValidUntil:       postedNumber(r, "po_ende"),
	}
}

// milestonesForm reads numbered date and label fields, like reading_date_1 and reading_label_1.
// Returns nil if none of the fields is in the form
func milestonesForm(r *http.Request, prefix string, n int) *[]records.MilestoneFields {
	res := make([]records.MilestoneFields, 0, n)
	found := false
	for i := 1; i <= n; i++ {
		date, label := posted(r, fmt.Sprintf("%s_date_%d", prefix, i)), posted(r, fmt.Sprintf("%s_label_%d", prefix, i))
		var mf records.MilestoneFields
		if date != nil {
			mf.Date, found = *date, true
		}
		if label != nil {
			mf.Label, found = *label, true
		}
		res = append(res, mf)
	}
	if !found {
		return nil
	}
	return &res
}

func reformForm(r *http.Request) records.ReformFields {
	res := records.ReformFields{
		ProgramID:       records.Number(r.PostFormValue("studiengang_id")),
		CoordinatorID:   records.Number(r.PostFormValue("hqe_id")),
		ApplicationDate: r.PostFormValue("antrag"),
		TargetCycle:     r.PostFormValue("zyklus"),
		Type:            r.PostFormValue("art"),
		Track:           r.PostFormValue("verfahren"),
		SecondaryTrack:  r.PostFormValue("kon_verfahren"),
	}
	if ms := milestonesForm(r, "reading", persistence.MaxReadings); ms != nil {
		res.Readings = *ms
	}
	if ms := milestonesForm(r, "resolution", persistence.MaxResolutions); ms != nil {
		res.Resolutions = *ms
	}
	return res
}

func reformPatchForm(r *http.Request) records.ReformPatch {
	return records.ReformPatch{
		ProgramID:       postedNumber(r, "studiengang_id"),
		CoordinatorID:   postedNumber(r, "hqe_id"),
		ApplicationDate: posted(r, "antrag"),
		TargetCycle:     posted(r, "zyklus"),
		Type:            posted(r, "art"),
		Track:           posted(r, "verfahren"),
		SecondaryTrack:  posted(r, "kon_verfahren"),
		Readings:        milestonesForm(r, "reading", persistence.MaxReadings),
		Resolutions:     milestonesForm(r, "resolution", persistence.MaxResolutions),
	}
}

func coordinatorForm(r *http.Request) records.CoordinatorFields {
	return records.CoordinatorFields{
		LongName:  r.PostFormValue("l_name"),
		ShortName: r.PostFormValue("k_name"),
		Login:     r.PostFormValue("itmz"),
		Phone:     records.Number(r.PostFormValue("tel")),
		Email:     r.PostFormValue("email"),
	}
}

func coordinatorPatchForm(r *http.Request) records.CoordinatorPatch {
	return records.CoordinatorPatch{
		LongName:  posted(r, "l_name"),
		ShortName: posted(r, "k_name"),
		Login:     posted(r, "itmz"),
		Phone:     postedNumber(r, "tel"),
		Email:     posted(r, "email"),
	}
}
