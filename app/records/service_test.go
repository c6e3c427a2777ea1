package records

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/persistence"
)

func newTestService(t *testing.T, policy enums.DeletePolicy) (*Service, *persistence.Store) {
	t.Helper()
	store, err := persistence.New(context.Background(),
		persistence.Params{Dialect: persistence.DialectSQLite, Path: filepath.Join(t.TempDir(), "records.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, Options{DeletePolicy: policy}), store
}

func strp(s string) *string { return &s }

func TestService_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	prog, err := svc.CreateProgram(ctx, ProgramFields{DegreeLong: "Bachelor", DegreeShort: "B.Sc.", LongName: "Informatik",
		ShortName: "Info", Faculty: "MNF", Institute: "MNF-Math"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), prog.ID)

	coord, err := svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "Max Mustermann", Email: "max@x.test"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), coord.ID)

	reform, err := svc.CreateReform(ctx, ReformFields{ProgramID: "1", CoordinatorID: "1", Type: "Neueinrichtung",
		Track: "vereinfachtes Verfahren"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reform.ID)

	all, err := svc.ListReforms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ReformProcedure{ID: 1, ProgramID: 1, CoordinatorID: 1, Type: enums.ProcedureNew,
		Track: enums.TrackSimplified}, all[0])
}

func TestService_CreateProgram(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		prog, err := svc.CreateProgram(ctx, ProgramFields{DegreeLong: "master", DegreeShort: "M.Sc.", LongName: " Physik ",
			ShortName: "Phy", Faculty: "mnf", Abint: "82", Stg: "105"})
		require.NoError(t, err)
		assert.Equal(t, Program{ID: prog.ID, DegreeLong: enums.DegreeMaster, DegreeShort: enums.DegreeMSc,
			LongName: "Physik", ShortName: "Phy", Faculty: enums.FacultyMNF, Abint: "82", Stg: 105}, prog)

		got, err := svc.GetProgram(ctx, prog.ID)
		require.NoError(t, err)
		assert.Equal(t, prog, got)
	})

	tbl := []struct {
		name    string
		fields  ProgramFields
		wantErr error
		msg     string
	}{
		{name: "no long name", fields: ProgramFields{ShortName: "Inf"}, wantErr: ErrMissingField, msg: "l_name"},
		{name: "whitespace long name", fields: ProgramFields{LongName: " \t\n ", ShortName: "Inf"}, wantErr: ErrMissingField,
			msg: "l_name"},
		{name: "blank short name", fields: ProgramFields{LongName: "Informatik", ShortName: "  "}, wantErr: ErrMissingField,
			msg: "k_name"},
		{name: "unknown faculty", fields: ProgramFields{LongName: "Informatik", ShortName: "Inf", Faculty: "XYZ"},
			wantErr: ErrInvalidValue, msg: "XYZ"},
		{name: "unknown degree", fields: ProgramFields{LongName: "Informatik", ShortName: "Inf", DegreeShort: "Dr."},
			wantErr: ErrInvalidValue, msg: "Dr."},
		{name: "bad stg", fields: ProgramFields{LongName: "Informatik", ShortName: "Inf", Stg: "abc"},
			wantErr: ErrInvalidValue, msg: "stg"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProgram(ctx, tt.fields)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	all, err := svc.ListPrograms(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "rejected programs are not stored")
}

func TestService_UpdateProgram(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()
	prog, err := svc.CreateProgram(ctx, ProgramFields{DegreeLong: "Bachelor", DegreeShort: "B.Sc.", LongName: "Informatik",
		ShortName: "Info", Faculty: "MNF", Institute: "MNF-Math", Stg: "79"})
	require.NoError(t, err)

	t.Run("single field", func(t *testing.T) {
		upd, err := svc.UpdateProgram(ctx, prog.ID, ProgramPatch{LongName: strp("X")})
		require.NoError(t, err)
		want := prog
		want.LongName = "X"
		assert.Equal(t, want, upd)

		got, err := svc.GetProgram(ctx, prog.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("clear optional enum", func(t *testing.T) {
		upd, err := svc.UpdateProgram(ctx, prog.ID, ProgramPatch{Institute: strp("")})
		require.NoError(t, err)
		assert.Equal(t, enums.Institute(""), upd.Institute)
		assert.Equal(t, enums.FacultyMNF, upd.Faculty)
	})

	t.Run("invalid value leaves row unchanged", func(t *testing.T) {
		before, err := svc.GetProgram(ctx, prog.ID)
		require.NoError(t, err)
		_, err = svc.UpdateProgram(ctx, prog.ID, ProgramPatch{LongName: strp("Y"), Faculty: strp("XYZ")})
		require.ErrorIs(t, err, ErrInvalidValue)
		after, err := svc.GetProgram(ctx, prog.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("clearing required field", func(t *testing.T) {
		_, err := svc.UpdateProgram(ctx, prog.ID, ProgramPatch{ShortName: strp("")})
		require.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing program", func(t *testing.T) {
		_, err := svc.UpdateProgram(ctx, 999, ProgramPatch{LongName: strp("X")})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Regulation(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()
	prog, err := svc.CreateProgram(ctx, ProgramFields{LongName: "Informatik", ShortName: "Info"})
	require.NoError(t, err)

	reg, err := svc.CreateRegulation(ctx, RegulationFields{ProgramID: NumberOf(prog.ID), StandardDuration: "6",
		Version: "2021", ValidFrom: "20212"})
	require.NoError(t, err)
	assert.Equal(t, RegulationVersion{ID: reg.ID, ProgramID: prog.ID, StandardDuration: 6, Version: 2021, ValidFrom: 20212}, reg)

	t.Run("unknown program", func(t *testing.T) {
		_, err := svc.CreateRegulation(ctx, RegulationFields{ProgramID: "42"})
		require.ErrorIs(t, err, ErrInvalidReference)
		regs, err := svc.ListRegulations(ctx)
		require.NoError(t, err)
		assert.Len(t, regs, 1)
	})

	t.Run("missing program id", func(t *testing.T) {
		_, err := svc.CreateRegulation(ctx, RegulationFields{Version: "2021"})
		require.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "studiengang_id")
	})

	t.Run("bad program id", func(t *testing.T) {
		_, err := svc.CreateRegulation(ctx, RegulationFields{ProgramID: "-1"})
		require.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("update", func(t *testing.T) {
		upd, err := svc.UpdateRegulation(ctx, reg.ID, RegulationPatch{ValidUntil: ptr(Number("20262"))})
		require.NoError(t, err)
		assert.Equal(t, 20262, upd.ValidUntil)
		assert.Equal(t, 2021, upd.Version)

		_, err = svc.UpdateRegulation(ctx, reg.ID, RegulationPatch{ProgramID: ptr(Number("77"))})
		require.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("by program", func(t *testing.T) {
		regs, err := svc.ProgramRegulations(ctx, prog.ID)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, reg.ID, regs[0].ID)

		_, err = svc.ProgramRegulations(ctx, 77)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteRegulation(ctx, reg.ID))
		_, err := svc.GetRegulation(ctx, reg.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, svc.DeleteRegulation(ctx, reg.ID), ErrNotFound)
	})
}

func TestService_Reform(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()
	prog, err := svc.CreateProgram(ctx, ProgramFields{LongName: "Informatik", ShortName: "Info"})
	require.NoError(t, err)
	coord, err := svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "Max Mustermann"})
	require.NoError(t, err)

	reform, err := svc.CreateReform(ctx, ReformFields{ProgramID: NumberOf(prog.ID), CoordinatorID: NumberOf(coord.ID),
		ApplicationDate: "12.05.2024", TargetCycle: "WS 2026/27", Type: "änderung", Track: "reguläres Verfahren",
		Readings: []MilestoneFields{{Date: "2024-06-01", Label: "SK 3/24"}, {}, {Label: "SK 5/24"}, {}},
		Resolutions: []MilestoneFields{{}, {}}})
	require.NoError(t, err)
	assert.True(t, reform.ApplicationDate.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, enums.ProcedureAmendment, reform.Type)
	require.Len(t, reform.Readings, 3)
	assert.Equal(t, "SK 3/24", reform.Readings[0].Label)
	assert.True(t, reform.Readings[1].IsZero())
	assert.Equal(t, "SK 5/24", reform.Readings[2].Label)
	assert.Nil(t, reform.Resolutions)

	t.Run("unknown program", func(t *testing.T) {
		_, err := svc.CreateReform(ctx, ReformFields{ProgramID: "99", CoordinatorID: NumberOf(coord.ID)})
		require.ErrorIs(t, err, ErrInvalidReference)
		all, err := svc.ListReforms(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("unknown coordinator", func(t *testing.T) {
		_, err := svc.CreateReform(ctx, ReformFields{ProgramID: NumberOf(prog.ID), CoordinatorID: "99"})
		require.ErrorIs(t, err, ErrInvalidReference)
		assert.Contains(t, err.Error(), "HQE 99")
	})

	t.Run("invalid values", func(t *testing.T) {
		base := ReformFields{ProgramID: NumberOf(prog.ID), CoordinatorID: NumberOf(coord.ID)}
		for _, f := range []func(f *ReformFields){
			func(f *ReformFields) { f.Type = "Umbenennung" },
			func(f *ReformFields) { f.Track = "schnelles Verfahren" },
			func(f *ReformFields) { f.ApplicationDate = "2024/05/12" },
			func(f *ReformFields) { f.Readings = make([]MilestoneFields, 5) },
			func(f *ReformFields) { f.Resolutions = []MilestoneFields{{Date: "tomorrow"}} },
		} {
			fields := base
			f(&fields)
			_, err := svc.CreateReform(ctx, fields)
			require.ErrorIs(t, err, ErrInvalidValue, "%+v", fields)
		}
	})

	t.Run("update milestones", func(t *testing.T) {
		upd, err := svc.UpdateReform(ctx, reform.ID, ReformPatch{
			Resolutions: &[]MilestoneFields{{Date: "2025-01-15", Label: "AS 1/25"}}})
		require.NoError(t, err)
		require.Len(t, upd.Resolutions, 1)
		assert.Len(t, upd.Readings, 3)
		assert.Equal(t, "WS 2026/27", upd.TargetCycle)

		upd, err = svc.UpdateReform(ctx, reform.ID, ReformPatch{Readings: &[]MilestoneFields{}, ApplicationDate: strp("")})
		require.NoError(t, err)
		assert.Nil(t, upd.Readings)
		assert.True(t, upd.ApplicationDate.IsZero())
		assert.Len(t, upd.Resolutions, 1)
	})

	t.Run("by coordinator", func(t *testing.T) {
		all, err := svc.CoordinatorReforms(ctx, coord.ID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		all, err = svc.ProgramReforms(ctx, prog.ID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestService_Coordinator(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()

	coord, err := svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "Erika Mustermann", ShortName: "EM",
		Login: "emuster", Phone: "4711", Email: "em@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 4711, coord.Phone)

	_, err = svc.CreateCoordinator(ctx, CoordinatorFields{ShortName: "EM"})
	require.ErrorIs(t, err, ErrMissingField)

	_, err = svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "   ", ShortName: "EM"})
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "l_name")

	_, err = svc.UpdateCoordinator(ctx, coord.ID, CoordinatorPatch{LongName: strp(" ")})
	require.ErrorIs(t, err, ErrMissingField)

	_, err = svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "Erika", Phone: "0341-97"})
	require.ErrorIs(t, err, ErrInvalidValue)

	upd, err := svc.UpdateCoordinator(ctx, coord.ID, CoordinatorPatch{Phone: ptr(Number(""))})
	require.NoError(t, err)
	assert.Zero(t, upd.Phone)
	assert.Equal(t, "emuster", upd.Login)

	all, err := svc.ListCoordinators(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_DeleteProgram(t *testing.T) {
	setup := func(t *testing.T, policy enums.DeletePolicy) (svc *Service, programID, coordinatorID int64) {
		svc, _ = newTestService(t, policy)
		ctx := context.Background()
		prog, err := svc.CreateProgram(ctx, ProgramFields{LongName: "Informatik", ShortName: "Info"})
		require.NoError(t, err)
		coord, err := svc.CreateCoordinator(ctx, CoordinatorFields{LongName: "Max Mustermann"})
		require.NoError(t, err)
		_, err = svc.CreateRegulation(ctx, RegulationFields{ProgramID: NumberOf(prog.ID), Version: "2021"})
		require.NoError(t, err)
		_, err = svc.CreateReform(ctx, ReformFields{ProgramID: NumberOf(prog.ID), CoordinatorID: NumberOf(coord.ID)})
		require.NoError(t, err)
		return svc, prog.ID, coord.ID
	}
	ctx := context.Background()

	t.Run("default policy rejects", func(t *testing.T) {
		svc, programID, coordinatorID := setup(t, "")
		assert.Equal(t, enums.DeleteReject, svc.DeletePolicy())

		err := svc.DeleteProgram(ctx, programID)
		require.ErrorIs(t, err, ErrHasDependents)
		assert.Contains(t, err.Error(), "1 Prüfungsordnung, 1 Reformverfahren")
		_, err = svc.GetProgram(ctx, programID)
		require.NoError(t, err)

		err = svc.DeleteCoordinator(ctx, coordinatorID)
		require.ErrorIs(t, err, ErrHasDependents)

		deps, err := svc.Dependents(ctx, enums.EntityProgram, programID)
		require.NoError(t, err)
		assert.Equal(t, 2, deps.Total())
	})

	t.Run("cascade", func(t *testing.T) {
		svc, programID, coordinatorID := setup(t, enums.DeleteCascade)
		require.NoError(t, svc.DeleteProgram(ctx, programID))

		_, err := svc.GetProgram(ctx, programID)
		require.ErrorIs(t, err, ErrNotFound)
		regs, err := svc.ListRegulations(ctx)
		require.NoError(t, err)
		assert.Empty(t, regs)
		reforms, err := svc.ListReforms(ctx)
		require.NoError(t, err)
		assert.Empty(t, reforms)

		require.NoError(t, svc.DeleteCoordinator(ctx, coordinatorID))
	})

	t.Run("missing", func(t *testing.T) {
		svc, _ := newTestService(t, "")
		require.ErrorIs(t, svc.DeleteProgram(ctx, 5), ErrNotFound)
		require.ErrorIs(t, svc.DeleteCoordinator(ctx, 5), ErrNotFound)
		require.ErrorIs(t, svc.DeleteReform(ctx, 5), ErrNotFound)
		_, err := svc.Dependents(ctx, enums.EntityProgram, 5)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("without dependents", func(t *testing.T) {
		svc, _ := newTestService(t, "")
		prog, err := svc.CreateProgram(ctx, ProgramFields{LongName: "Chemie", ShortName: "Che"})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteProgram(ctx, prog.ID))
		_, err = svc.GetProgram(ctx, prog.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_StoreUnavailable(t *testing.T) {
	svc, store := newTestService(t, "")
	require.NoError(t, store.Close())
	ctx := context.Background()

	_, err := svc.CreateProgram(ctx, ProgramFields{LongName: "Informatik", ShortName: "Info"})
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.ListPrograms(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.CreateRegulation(ctx, RegulationFields{ProgramID: "1"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, svc.DeleteCoordinator(ctx, 1), ErrUnavailable)
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var f RegulationFields
	require.NoError(t, json.Unmarshal([]byte(`{"studiengang_id": 3, "rsz": "6", "po_version": null}`), &f))
	assert.Equal(t, RegulationFields{ProgramID: "3", StandardDuration: "6"}, f)
}

func TestParseDate(t *testing.T) {
	tbl := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2024-05-12", want: time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)},
		{in: " 12.05.2024 ", want: time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)},
		{in: "12/05/2024", wantErr: true},
		{in: "2024-13-01", wantErr: true},
	}
	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema(t *testing.T) {
	s, err := Schema(enums.EntityProgram)
	require.NoError(t, err)
	assert.Equal(t, "Studiengang", s.Title)
	assert.ElementsMatch(t, []string{"l_name", "k_name"}, s.Required)
	fak, ok := s.Properties.Get("fak")
	require.True(t, ok)
	assert.Contains(t, fak.Enum, "MNF")

	s, err = Schema(enums.EntityReform)
	require.NoError(t, err)
	readings, ok := s.Properties.Get("readings")
	require.True(t, ok)
	require.NotNil(t, readings.MaxItems)
	assert.Equal(t, uint64(4), *readings.MaxItems)
	art, ok := s.Properties.Get("art")
	require.True(t, ok)
	assert.Contains(t, art.Enum, "Schließung")

	_, err = Schema("nope")
	require.ErrorIs(t, err, ErrInvalidValue)
}
